package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/auditbot/internal/discord"
)

const (
	guildMembersPageSize   = 1000
	defaultFileContentType = "application/octet-stream"
)

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string

	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token:  token,
		closed: make(chan struct{}),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsDirectMessages)
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) error {
	if c.session == nil {
		return fmt.Errorf("discord session is not initialized")
	}
	ch, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel with %s: %w", userID, err)
	}
	if _, err := c.session.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", userID, err)
	}
	return nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content)
	return err
}

func (c *Client) SendChannelMessageWithFile(msg discordpkg.FileMessage) error {
	contentType := msg.ContentType
	if contentType == "" {
		contentType = defaultFileContentType
	}
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: msg.Content,
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: contentType, Reader: bytes.NewReader(msg.FileBody)},
		},
	})
	return err
}

func (c *Client) RegisterSlashCommandHandler(handler func(discordpkg.SlashCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		if data.Name == "" {
			return
		}
		user := interactionUser(ic)
		if user == nil || user.ID == "" {
			return
		}
		slog.Info("slash command interaction received", "guild_id", ic.GuildID, "channel_id", ic.ChannelID, "command", data.Name, "user_id", user.ID)
		respond := func(flags discordgo.MessageFlags) func(string) error {
			return func(content string) error {
				return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: content,
						Flags:   flags,
					},
				})
			}
		}
		handler(discordpkg.SlashCommandEvent{
			GuildID:          ic.GuildID,
			ChannelID:        ic.ChannelID,
			CommandName:      data.Name,
			UserID:           user.ID,
			UserName:         user.Username,
			Options:          stringOptions(data.Options),
			Respond:          respond(0),
			RespondEphemeral: respond(discordgo.MessageFlagsEphemeral),
		})
	})
}

func interactionUser(ic *discordgo.InteractionCreate) *discordgo.User {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User
	}
	return ic.User
}

func stringOptions(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	out := make(map[string]string, len(options))
	for _, o := range options {
		if o == nil || o.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		out[o.Name] = o.StringValue()
	}
	return out
}

func (c *Client) RegisterDirectMessageHandler(handler func(discordpkg.DirectMessageEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || m.Author == nil || m.Author.Bot || m.GuildID != "" {
			return
		}
		handler(discordpkg.DirectMessageEvent{
			ChannelID: m.ChannelID,
			UserID:    m.Author.ID,
			Content:   m.Content,
			Reply: func(content string) error {
				_, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference())
				return err
			},
		})
	})
}

func (c *Client) UpsertGuildSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	appID := c.applicationID()
	if appID == "" {
		return fmt.Errorf("discord application id is not available")
	}
	existing, err := c.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		if cmd == nil || cmd.Name == "" {
			continue
		}
		existingByName[cmd.Name] = cmd
	}
	for _, def := range defs {
		if err := c.upsertGuildSlashCommand(appID, guildID, def, existingByName); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) upsertGuildSlashCommand(appID, guildID string, def discordpkg.SlashCommandDefinition, existingByName map[string]*discordgo.ApplicationCommand) error {
	if def.Name == "" {
		return nil
	}
	payload := toApplicationCommand(def)
	cmd, ok := existingByName[def.Name]
	if !ok {
		_, err := c.session.ApplicationCommandCreate(appID, guildID, payload)
		return err
	}
	if commandMatches(cmd, payload) {
		return nil
	}
	_, err := c.session.ApplicationCommandEdit(appID, guildID, cmd.ID, payload)
	return err
}

func toApplicationCommand(def discordpkg.SlashCommandDefinition) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        def.Name,
		Description: def.Description,
	}
	for _, o := range def.Options {
		cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		})
	}
	return cmd
}

func commandMatches(existing, desired *discordgo.ApplicationCommand) bool {
	if existing.Description != desired.Description || len(existing.Options) != len(desired.Options) {
		return false
	}
	for i, o := range desired.Options {
		e := existing.Options[i]
		if e == nil || e.Name != o.Name || e.Description != o.Description || e.Required != o.Required || e.Type != o.Type {
			return false
		}
	}
	return true
}

func (c *Client) ListGuildMembers(ctx context.Context, guildID string) ([]discordpkg.Member, error) {
	if c.session == nil {
		return nil, fmt.Errorf("discord session is not initialized")
	}
	var out []discordpkg.Member
	after := ""
	for {
		page, err := c.session.GuildMembers(guildID, after, guildMembersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list guild members: %w", err)
		}
		for _, m := range page {
			if m == nil || m.User == nil {
				continue
			}
			out = append(out, discordpkg.Member{
				UserID:   m.User.ID,
				Username: m.User.Username,
				RealName: preferredDiscordName(m.Nick, m.User.GlobalName, m.User.Username),
				IsBot:    m.User.Bot || m.User.System,
			})
		}
		if len(page) < guildMembersPageSize || page[len(page)-1].User == nil {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func preferredDiscordName(names ...string) string {
	for _, n := range names {
		if n != "" {
			return n
		}
	}
	return ""
}

func (c *Client) applicationID() string {
	if c.session == nil || c.session.State == nil {
		return ""
	}
	if c.session.State.Application != nil && c.session.State.Application.ID != "" {
		return c.session.State.Application.ID
	}
	if c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

// Run blocks until Close is called.
func (c *Client) Run() error {
	<-c.closed
	return nil
}
