package discord

import "context"

type FileMessage struct {
	ChannelID   string
	Content     string
	Filename    string
	ContentType string
	FileBody    []byte
}

type SlashCommandOption struct {
	Name        string
	Description string
	Required    bool
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	Options     []SlashCommandOption
}

type SlashCommandEvent struct {
	GuildID     string
	ChannelID   string
	CommandName string
	UserID      string
	UserName    string
	Options     map[string]string
	Respond     func(content string) error
	// RespondEphemeral is visible only to the invoking user.
	RespondEphemeral func(content string) error
}

type DirectMessageEvent struct {
	ChannelID string
	UserID    string
	Content   string
	Reply     func(content string) error
}

type Member struct {
	UserID   string
	Username string
	RealName string
	IsBot    bool
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	SendDirectMessage(ctx context.Context, userID, content string) error
	SendChannelMessage(channelID, content string) error
	SendChannelMessageWithFile(msg FileMessage) error
	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	RegisterDirectMessageHandler(handler func(DirectMessageEvent))
	UpsertGuildSlashCommands(guildID string, defs []SlashCommandDefinition) error
	ListGuildMembers(ctx context.Context, guildID string) ([]Member, error)
	GetBotUserID() (string, error)
	Run() error
}
