// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bot contains the command dispatcher and run loop for ircbridge.
package bot

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/ircbridge/internal/config"
	"github.com/jeranaias/ircbridge/internal/irc"
	"github.com/jeranaias/ircbridge/internal/openai"
	"github.com/jeranaias/ircbridge/internal/util"
)

// Message budgets and pacing.
const (
	// inboundChunkLimit caps a single responder request; longer prompts are
	// sliced and replayed into the same conversation chunk by chunk.
	inboundChunkLimit = 500

	// outboundChunkLimit caps a single PRIVMSG payload.
	outboundChunkLimit = 400

	// defaultSendInterval spaces outbound chunks so the server's flood
	// limiter is not tripped.
	defaultSendInterval = 500 * time.Millisecond
)

// Sender is the outbound half of a connection.
type Sender interface {
	Send(line string) error
}

// Responder answers prompts and accepts hot-reloaded settings between
// messages. Implemented by openai.Responder.
type Responder interface {
	Respond(ctx context.Context, identity, text string) (string, error)
	ApplySettings(s openai.Settings)
}

// Bot dispatches protocol lines and owns the reconnect run loop. All of its
// methods run on the single read-loop goroutine; the only cross-goroutine
// input is the config snapshot channel, drained at safe points.
type Bot struct {
	logger    *zap.Logger
	cfg       *config.Config
	updates   <-chan *config.Config
	responder Responder
	pace      *rate.Limiter
	connOpts  []irc.Option
}

// Option configures a Bot.
type Option func(*Bot)

// WithSendInterval overrides the outbound inter-chunk delay. Tests use a
// zero interval to avoid real sleeps.
func WithSendInterval(d time.Duration) Option {
	return func(b *Bot) { b.pace = rate.NewLimiter(rate.Every(d), 1) }
}

// WithConnOptions passes options through to each connection cycle.
func WithConnOptions(opts ...irc.Option) Option {
	return func(b *Bot) { b.connOpts = opts }
}

// New creates a Bot around an initial config snapshot. updates may be nil
// when hot reload is disabled.
func New(logger *zap.Logger, cfg *config.Config, updates <-chan *config.Config, responder Responder, opts ...Option) *Bot {
	b := &Bot{
		logger:    logger,
		cfg:       cfg,
		updates:   updates,
		responder: responder,
		pace:      rate.NewLimiter(rate.Every(defaultSendInterval), 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// =============================================================================
// RUN LOOP
// =============================================================================

// Run connects and processes lines until ctx is canceled. When the listen
// loop reports a read failure the connection is torn down and the connect
// cycle starts over — the bridge never sits on a dead socket.
func (b *Bot) Run(ctx context.Context) error {
	for {
		b.drainConfig()

		conn := irc.NewConn(b.logger, b.connOpts...)
		if err := conn.Connect(ctx, paramsFromConfig(b.cfg)); err != nil {
			return err
		}

		err := conn.Listen(ctx, func(line string) {
			b.HandleLine(ctx, conn, line)
		})
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Warn("connection lost, reconnecting", zap.Error(err))
	}
}

// paramsFromConfig maps a config snapshot to connection parameters.
// Nickname, channel and credential changes therefore apply on the next
// connect cycle, never mid-connection.
func paramsFromConfig(cfg *config.Config) irc.Params {
	return irc.Params{
		Server:   cfg.Server,
		Port:     cfg.Port,
		SourceIP: cfg.SourceIP,
		Nickname: cfg.Nickname,
		Password: cfg.Password,
		Channels: cfg.Channels,
		UseSSL:   cfg.UseSSL,
	}
}

// drainConfig applies any pending snapshots. Non-blocking, so an idle
// channel costs nothing; called only between messages so an in-flight
// line never sees two configs.
func (b *Bot) drainConfig() {
	for {
		select {
		case cfg := <-b.updates:
			b.cfg = cfg
			b.responder.ApplySettings(openai.SettingsFromConfig(cfg))
			b.logger.Info("configuration snapshot applied",
				zap.String("nickname", cfg.Nickname),
				zap.String("model", cfg.Model))
		default:
			return
		}
	}
}

// =============================================================================
// DISPATCH
// =============================================================================

// HandleLine interprets one protocol line. Malformed or unrecognized lines
// are logged and discarded, never errors.
func (b *Bot) HandleLine(ctx context.Context, sender Sender, line string) {
	b.drainConfig()
	b.logger.Debug("line received", zap.String("line", line))

	if strings.HasPrefix(line, "PING") {
		b.handlePing(sender, line)
		return
	}
	if strings.Contains(line, "INVITE") {
		b.handleInvite(sender, line)
		return
	}
	b.handlePrivmsg(ctx, sender, line)
}

// handlePing answers the keep-alive immediately with the server's token.
func (b *Bot) handlePing(sender Sender, line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}
	token := strings.TrimPrefix(fields[1], ":")
	if err := sender.Send("PONG " + token); err != nil {
		b.logger.Error("pong failed", zap.Error(err))
	}
}

// handleInvite joins the channel named by the fourth whitespace token.
// Positional extraction, not robust parsing — an INVITE with unusual
// formatting is silently skipped.
func (b *Bot) handleInvite(sender Sender, line string) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return
	}

	cmd := irc.Split(line)
	inviter := cmd.Nick()
	channel := strings.TrimPrefix(parts[3], ":")

	b.logger.Info("invited to channel",
		zap.String("inviter", inviter),
		zap.String("channel", channel))
	if err := sender.Send("JOIN " + channel); err != nil {
		b.logger.Error("join failed", zap.String("channel", channel), zap.Error(err))
	}
}

// handlePrivmsg routes an addressed message through the responder and sends
// the chunked reply. Messages not addressed to the bot are ignored.
func (b *Bot) handlePrivmsg(ctx context.Context, sender Sender, line string) {
	cmd := irc.Split(line)
	if len(cmd.Parts) < 4 || cmd.Verb() != "PRIVMSG" {
		return
	}

	user := cmd.Nick()
	target := cmd.Target()
	text := cmd.Text()

	// A direct message arrives targeted at our own nickname; the reply
	// goes back to the sender instead.
	if target == b.cfg.Nickname {
		target = user
	}

	// Addressed iff the text starts with our nickname, case-sensitive.
	if !strings.HasPrefix(text, b.cfg.Nickname) {
		return
	}
	prompt := strings.TrimSpace(text[len(b.cfg.Nickname):])
	prompt = strings.TrimSpace(strings.TrimPrefix(prompt, ":"))

	reply := b.respondChunked(ctx, user, prompt)
	if reply == "" {
		return
	}
	b.sendReply(ctx, sender, target, user, reply)
}

// respondChunked slices an oversized prompt to the inbound budget and
// replays the chunks into the same conversation in order, so the responder
// sees the full text as consecutive turns. Replies are space-joined and
// flattened to one line. A responder failure abandons the remaining chunks;
// history keeps whatever earlier chunks already appended.
func (b *Bot) respondChunked(ctx context.Context, identity, prompt string) string {
	chunks := util.SplitFixed(prompt, inboundChunkLimit)
	replies := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		reply, err := b.responder.Respond(ctx, identity, chunk)
		if err != nil {
			b.logger.Error("responder call failed",
				zap.String("identity", identity),
				zap.Int("chunk", i),
				zap.Int("chunks", len(chunks)),
				zap.Error(err))
			break
		}
		replies = append(replies, reply)
	}
	return util.Flatten(strings.Join(replies, " "))
}

// sendReply splits the reply to the outbound budget on word boundaries and
// sends each chunk as its own PRIVMSG, pacing sends to stay under the
// server's flood limit. Only the first chunk addresses the user by name. A
// send failure drops the remaining chunks — partial delivery is accepted,
// not retried.
func (b *Bot) sendReply(ctx context.Context, sender Sender, target, user, reply string) {
	chunks := util.SplitWords(reply, outboundChunkLimit)
	for i, chunk := range chunks {
		if err := b.pace.Wait(ctx); err != nil {
			return
		}
		text := chunk
		if i == 0 {
			text = user + ": " + chunk
		}
		if err := sender.Send("PRIVMSG " + target + " :" + text); err != nil {
			b.logger.Error("send failed, dropping remaining reply chunks",
				zap.String("target", target),
				zap.Int("sent", i),
				zap.Int("chunks", len(chunks)),
				zap.Error(err))
			return
		}
	}
}
