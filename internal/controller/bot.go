package controller

import (
	"context"
	"errors"

	"github.com/Freeeeeet/planbot/internal/controller/dispatcher"
	"github.com/Freeeeeet/planbot/internal/controller/handlers"
	"github.com/Freeeeeet/planbot/internal/controller/messenger"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// BotController связывает обновления Telegram с реестром команд и диспетчером нажатий
type BotController struct {
	bot        *bot.Bot
	registry   *handlers.Registry
	dispatcher *dispatcher.Dispatcher
	replier    *handlers.ErrorReplier
	logger     *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	registry *handlers.Registry,
	disp *dispatcher.Dispatcher,
	replier *handlers.ErrorReplier,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:        botInstance,
		registry:   registry,
		dispatcher: disp,
		replier:    replier,
		logger:     logger,
	}
}

// RegisterHandlers регистрирует обработчики команд и нажатий
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/", bot.MatchTypePrefix, c.HandleUpdate)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.HandleUpdate)

	return c.setCommands(ctx)
}

// HandleUpdate обрабатывает любое обновление; используется и как default handler бота
func (c *BotController) HandleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		c.handlePress(ctx, update.CallbackQuery)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message, false)
	case update.EditedMessage != nil:
		c.handleMessage(ctx, update.EditedMessage, true)
	}
}

func (c *BotController) handleMessage(ctx context.Context, msg *models.Message, edited bool) {
	if msg.From == nil || msg.Text == "" {
		return
	}

	ref := messenger.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
	req, err := handlers.NewRequest(msg.Chat.ID, msg.From.ID, messenger.DisplayName(msg.From), msg.Text, edited, ref)
	if errors.Is(err, handlers.ErrNotCommand) {
		return
	}
	if err != nil {
		if !edited {
			c.replier.Reply(ctx, msg.Chat.ID, err)
		}
		return
	}

	if !c.registry.Handle(ctx, req) {
		c.logger.Debug("Unknown command ignored", zap.String("command", req.Command))
	}
}

func (c *BotController) handlePress(ctx context.Context, cq *models.CallbackQuery) {
	press := messenger.PressFromCallback(cq)
	outcome, err := c.dispatcher.Dispatch(ctx, press)
	if err != nil {
		c.logger.Error("Failed to dispatch callback",
			zap.Int64("chat_id", press.ChatID),
			zap.Int64("user_id", press.UserID),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("Callback dispatched", zap.String("outcome", string(outcome)))
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	visible := c.registry.Commands()
	commands := make([]models.BotCommand, 0, len(visible))
	for _, cmd := range visible {
		commands = append(commands, models.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set", zap.Int("commands", len(commands)))
	return nil
}

// Start запускает long polling и блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot")
	c.bot.Start(ctx)
}
