package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"incubator-alerts/internal/ledger"
)

// Notifier delivers one alert lifecycle event to an external channel.
type Notifier interface {
	Notify(ctx context.Context, ev ledger.Event) error
}

// TelegramNotifier pushes lifecycle messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram delivery channel.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls the sendMessage API with the rendered event text.
func (n *TelegramNotifier) Notify(ctx context.Context, ev ledger.Event) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(ev),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().
		Str("alert_id", ev.AlertID.String()).
		Str("transition", string(ev.Transition)).
		Msg("alert notification sent")
	return nil
}

func renderMessage(ev ledger.Event) string {
	a := ev.Alert
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Incubadora %s] %s\n", a.IncubatorID, strings.ToUpper(string(ev.Transition))))
	builder.WriteString(a.Message + "\n")
	builder.WriteString(fmt.Sprintf("Tipo: %s\n", a.Type))
	builder.WriteString(fmt.Sprintf("Severidad: %s\n", a.Severity))
	builder.WriteString(fmt.Sprintf("Estado: %s\n", a.State))
	if a.PatientID != "" {
		builder.WriteString(fmt.Sprintf("Paciente: %s\n", a.PatientID))
	}
	if a.LowConfidence {
		builder.WriteString("Confianza baja (calidad de datos degradada)\n")
	}
	builder.WriteString(fmt.Sprintf("Alerta: %s\n", a.ID))
	builder.WriteString(fmt.Sprintf("Hora: %s\n", ev.At.UTC().Format(time.RFC3339)))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
