package telegram

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"strings"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
)

const welcomeTemplate = `🎮 <b>Welcome to Synapse IELTS RPG, %s!</b>

⚔️ Battle monsters by speaking English
🎯 Master IELTS through voice combat
🏆 Compete in regional leaderboards

Click the button below to start your journey!`

const helpText = `<b>📚 Synapse IELTS RPG Commands</b>

/start - Launch the game
/help - Show this help message
/stats - View your statistics
/leaderboard - Regional rankings

<b>🎮 How to Play</b>
1. Click "🎮 PLAY SYNAPSE" button
2. Speak into your microphone to attack
3. AI analyzes your English fluency
4. Defeat monsters and earn XP

<b>🏆 Features</b>
• Voice-based combat system
• Real-time IELTS feedback
• Clan battles and raids
• Regional competitions`

// Bot dispatches incoming webhook updates to command handlers.
type Bot struct {
	client        *BotClient
	webhookSecret string
	frontendURL   string
	users         *player.Repository
}

// NewBot wires the dispatcher to the API client.
func NewBot(client *BotClient, webhookSecret, frontendURL string) *Bot {
	return &Bot{
		client:        client,
		webhookSecret: webhookSecret,
		frontendURL:   frontendURL,
	}
}

// SetUserRepository provides account lookup for the /stats command.
func (b *Bot) SetUserRepository(users *player.Repository) {
	b.users = users
}

// ValidateWebhookSecret checks the X-Telegram-Bot-Api-Secret-Token header value.
func (b *Bot) ValidateWebhookSecret(secretToken string) bool {
	return subtle.ConstantTimeCompare([]byte(secretToken), []byte(b.webhookSecret)) == 1
}

// HandleUpdate processes one webhook update. Unknown commands get the
// default hint, button presses are acknowledged.
func (b *Bot) HandleUpdate(ctx context.Context, update Update) error {
	if update.Message != nil {
		if err := b.handleMessage(ctx, *update.Message); err != nil {
			return err
		}
	}
	if update.CallbackQuery != nil {
		if err := b.client.AnswerCallbackQuery(ctx, update.CallbackQuery.ID, "Processing..."); err != nil {
			return fmt.Errorf("answer callback query: %w", err)
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg Message) error {
	text := msg.Text
	switch {
	case strings.HasPrefix(text, "/start"):
		return b.handleStart(ctx, msg)
	case strings.HasPrefix(text, "/help"):
		return b.client.SendMessage(ctx, msg.Chat.ID, helpText)
	case strings.HasPrefix(text, "/stats"):
		return b.handleStats(ctx, msg)
	default:
		return b.client.SendMessage(ctx, msg.Chat.ID,
			"Welcome! Use /start to play the game or /help for commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg Message) error {
	welcome := fmt.Sprintf(welcomeTemplate, msg.From.FirstName)
	buttons := [][]InlineButton{
		{
			{
				Text:   "🎮 PLAY SYNAPSE",
				WebApp: &WebApp{URL: b.frontendURL},
			},
		},
	}
	return b.client.SendInlineKeyboard(ctx, msg.Chat.ID, welcome, buttons)
}

func (b *Bot) handleStats(ctx context.Context, msg Message) error {
	if b.users == nil {
		return b.client.SendMessage(ctx, msg.Chat.ID, "Stats are unavailable right now.")
	}

	telegramID := fmt.Sprintf("%d", msg.From.ID)
	user, err := b.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		log.Printf("[telegram] stats lookup for %s: %v", telegramID, err)
		return b.client.SendMessage(ctx, msg.Chat.ID, "No stats found. Play the game first!")
	}

	statsText := fmt.Sprintf(`📊 <b>Your Stats</b>

🎯 XP: %d
💰 Credits: %.0f
📚 Vocabulary: %d
✍️ Syntax: %d
🗣️ Fluency: %d`,
		user.XP, user.DigitalCredits,
		user.Stats.Vocabulary, user.Stats.Syntax, user.Stats.Fluency)
	return b.client.SendMessage(ctx, msg.Chat.ID, statsText)
}
