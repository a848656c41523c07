package command

import "fmt"

// LinkInfoURL explains account linking to players.
const LinkInfoURL = "https://link.geysermc.org/"

// Message is the translation key of a reply.
type Message string

// Link account messages.
const (
	AlreadyLinked        Message = "floodgate.command.link_account.already_linked"
	JavaUsage            Message = "floodgate.command.link_account.java_usage"
	LinkRequestCreated   Message = "floodgate.command.link_account.link_request_created"
	BedrockUsage         Message = "floodgate.command.link_account.bedrock_usage"
	LinkRequestExpired   Message = "floodgate.command.link_account.link_request_expired"
	LinkRequestCompleted Message = "floodgate.command.link_account.link_request_completed"
	LinkRequestError     Message = "floodgate.command.link_request.error"
	InvalidCode          Message = "floodgate.command.link_account.invalid_code"
	NoLinkRequested      Message = "floodgate.command.link_account.no_link_requested"
	LinkRequestDisabled  Message = "floodgate.commands.linking_disabled"
	IsLinkedError        Message = "floodgate.commands.is_linked_error"
	GlobalLinkingNotice  Message = "floodgate.commands.global_linking_notice"
)

// Unlink account messages.
const (
	NotLinked         Message = "floodgate.command.unlink_account.not_linked"
	UnlinkSuccess     Message = "floodgate.command.unlink_account.unlink_success"
	UnlinkError       Message = "floodgate.command.unlink_account.error"
	LinkingNotEnabled Message = "floodgate.command.unlink_account.linking_not_enabled"
)

const checkConsole = " Check the console for more information."

var english = map[Message]string{
	AlreadyLinked:        "Your account is already linked! If you want to link to a different account, run /unlinkaccount and try again.",
	JavaUsage:            "Usage: /linkaccount <gamertag>",
	LinkRequestCreated:   "Log in as %s on Bedrock and run /linkaccount %s %s\nWarning: Any progress on your Bedrock account will not be transferred to your Java account!",
	BedrockUsage:         "Usage: /linkaccount <java username> <link code>",
	LinkRequestExpired:   "The code you entered is expired! Run /linkaccount again on your Java account.",
	LinkRequestCompleted: "You are successfully linked to %s! You will be kicked so you can join with your linked account.",
	LinkRequestError:     "An error occurred while linking your account." + checkConsole,
	InvalidCode:          "Invalid code! Please check your code or run /linkaccount again on your Java account.",
	NoLinkRequested:      "This player did not request a link! Make sure to use the Java username.",
	LinkRequestDisabled:  "Linking is disabled on this server.",
	IsLinkedError:        "An error occurred while checking whether you are linked." + checkConsole,
	GlobalLinkingNotice:  "This server uses global linking. Visit %s to link your accounts.",
	NotLinked:            "Your account is not linked.",
	UnlinkSuccess:        "Unlink successful! You will be kicked so you can rejoin with your Bedrock account.",
	UnlinkError:          "An error occurred while unlinking your account." + checkConsole,
	LinkingNotEnabled:    "Account linking is not enabled on this server.",
}

// Reply is the outcome of a command shown to the sender.
type Reply struct {
	Key  Message
	Args []any
	// Kick disconnects the sender with the message, the identity of
	// the player changed and cannot be applied to the running session.
	Kick bool
}

func reply(key Message, args ...any) Reply { return Reply{Key: key, Args: args} }

// String renders the reply with the English template.
func (r Reply) String() string {
	tmpl, ok := english[r.Key]
	if !ok {
		if len(r.Args) == 0 {
			return string(r.Key)
		}
		return fmt.Sprintf("%s %v", r.Key, r.Args)
	}
	if len(r.Args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, r.Args...)
}
