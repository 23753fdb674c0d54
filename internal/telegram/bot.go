package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/imageproc"
	"github.com/Brownie44l1/safe-skin/internal/logging"
	"github.com/Brownie44l1/safe-skin/internal/navigation"
	"github.com/Brownie44l1/safe-skin/internal/service"
)

const (
	msgStart = `🩺 Welcome to Safe Skin — early detection support for skin lesions.

📋 Commands:
/predict — upload a dermoscopic image and get a prediction
/solution — recovery window and treatment steps per diagnosis
/labels — the seven classes the model knows
/help — help

⚠️ This is not a medical device. Always consult a dermatologist.`

	msgHelp = `ℹ️ How to use:

1️⃣ /predict, then send a close-up photo of the lesion
2️⃣ You get the most likely class, its confidence and all scores
3️⃣ /solution, then pick a diagnosis for recovery guidance

/home — back to start
/reset — forget the current image`

	msgAwaitingPhoto  = "📸 Send a dermoscopic image of the lesion (JPEG or PNG)."
	msgPickLabel      = "💊 Pick a diagnosis to see its recovery window and treatment steps."
	msgUsePredict     = "📸 Use /predict before sending an image."
	msgUnknownCommand = "❓ Unknown command. Use /help."
	msgProcessing     = "⏳ Analysing image..."
	msgReset          = "🧹 Image cleared."
	msgUnsupported    = "⚠️ Unsupported image format. Supported: JPEG, PNG."
	msgAnalysisFailed = "⚠️ Analysis failed. Try another photo."
	msgUnavailable    = "🚫 Prediction is unavailable: the classifier model is not loaded."
	msgDownloadFailed = "⚠️ Could not download the image. Try again."
)

// botAPI is the part of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front end. Each chat is one session.
type Bot struct {
	api   botAPI
	token string
	svc   *service.Service
	log   *slog.Logger
}

func NewBot(token string, svc *service.Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, token, svc)
	b.log.Info("authorized", "account", api.Self.UserName)
	return b, nil
}

func newBot(api botAPI, token string, svc *service.Service) *Bot {
	return &Bot{
		api:   api,
		token: token,
		svc:   svc,
		log:   logging.New("telegram"),
	}
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func sessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	sid := sessionID(msg.Chat.ID)

	if msg.IsCommand() {
		b.handleCommand(ctx, sid, msg)
		return
	}

	if len(msg.Photo) > 0 {
		// largest size is last
		b.handleImage(ctx, sid, msg.Chat.ID, msg.Photo[len(msg.Photo)-1].FileID)
		return
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		b.handleImage(ctx, sid, msg.Chat.ID, msg.Document.FileID)
		return
	}

	b.handleText(ctx, sid, msg)
}

func (b *Bot) handleCommand(ctx context.Context, sid string, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "home":
		b.navigate(ctx, sid, navigation.Home)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "predict":
		st := b.navigate(ctx, sid, navigation.Prediction)
		if st != nil && !st.ModelAvailable {
			b.sendMessage(chatID, msgUnavailable)
			return
		}
		b.sendMessage(chatID, msgAwaitingPhoto)

	case "solution":
		b.navigate(ctx, sid, navigation.Solution)
		reply := tgbotapi.NewMessage(chatID, msgPickLabel)
		reply.ReplyMarkup = labelKeyboard()
		b.send(reply)

	case "labels":
		b.sendMessage(chatID, formatLabels())

	case "reset", "cancel":
		if _, err := b.svc.Reset(ctx, sid); err != nil {
			b.log.Error("reset failed", "session", sid, "error", err)
		}
		b.sendMessage(chatID, msgReset)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) navigate(ctx context.Context, sid string, view navigation.View) *service.State {
	st, err := b.svc.Navigate(ctx, sid, view)
	if err != nil {
		b.log.Error("navigate failed", "session", sid, "view", view, "error", err)
		return nil
	}
	return st
}

func (b *Bot) handleImage(ctx context.Context, sid string, chatID int64, fileID string) {
	st, err := b.svc.State(ctx, sid)
	if err != nil || st.View != navigation.Prediction {
		b.sendMessage(chatID, msgUsePredict)
		return
	}
	if !st.ModelAvailable {
		b.sendMessage(chatID, msgUnavailable)
		return
	}

	b.sendMessage(chatID, msgProcessing)

	data, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.log.Error("download failed", "session", sid, "error", err)
		b.sendMessage(chatID, msgDownloadFailed)
		return
	}

	if _, err := b.svc.Upload(ctx, sid, data); err != nil {
		b.replyError(chatID, err)
		return
	}

	pred, err := b.svc.Predict(ctx, sid)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendMessage(chatID, formatPrediction(pred))
}

func (b *Bot) handleText(ctx context.Context, sid string, msg *tgbotapi.Message) {
	st, err := b.svc.State(ctx, sid)
	if err != nil {
		b.log.Error("state failed", "session", sid, "error", err)
		return
	}

	switch st.View {
	case navigation.Solution:
		label, err := diagnosis.Parse(msg.Text)
		if err != nil {
			b.sendMessage(msg.Chat.ID, msgPickLabel)
			return
		}
		rec, err := b.svc.Recommend(ctx, sid, label)
		if err != nil {
			b.replyError(msg.Chat.ID, err)
			return
		}
		b.sendMessage(msg.Chat.ID, formatRecommendation(rec))
	case navigation.Prediction:
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)
	default:
		b.sendMessage(msg.Chat.ID, msgStart)
	}
}

func (b *Bot) replyError(chatID int64, err error) {
	switch {
	case errors.Is(err, imageproc.ErrUnsupportedFormat):
		b.sendMessage(chatID, msgUnsupported)
	case errors.Is(err, service.ErrPredictionUnavailable):
		b.sendMessage(chatID, msgUnavailable)
	case errors.Is(err, service.ErrWrongView), errors.Is(err, service.ErrSuperseded):
		b.sendMessage(chatID, msgUsePredict)
	default:
		b.log.Error("request failed", "chat", chatID, "error", err)
		b.sendMessage(chatID, msgAnalysisFailed)
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "chat", msg.ChatID, "error", err)
	}
}
