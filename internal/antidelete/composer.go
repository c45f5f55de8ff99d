package antidelete

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/internal/metrics"
)

const (
	alertHeader = "👿 *Anti-Delete Alert* 👿"

	chatTypeGroup   = "Group"
	chatTypePrivate = "Private"
)

// GroupMetadata is the subset of group information the alert shows.
type GroupMetadata struct {
	Subject string
}

type GroupMetadataFetcher interface {
	GroupMetadata(ctx context.Context, conversationID string) (GroupMetadata, error)
}

// Notification is the composed alert text plus the identities it mentions.
type Notification struct {
	Text      string
	Deleter   string
	Sender    string
	IsGroup   bool
	GroupName string
}

// Mentions lists the identities referenced by the alert text, deleter first.
func (n Notification) Mentions() []string {
	return []string{n.Deleter, n.Sender}
}

type Composer struct {
	groups GroupMetadataFetcher
	log    *zap.Logger
}

func NewComposer(groups GroupMetadataFetcher, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Composer{groups: groups, log: log}
}

// Compose builds the alert for d. A failed group lookup only drops the
// group line.
func (c *Composer) Compose(ctx context.Context, d Deletion) Notification {
	n := Notification{
		Deleter: d.Deleter,
		Sender:  d.Original.Sender,
		IsGroup: IsGroup(d.ConversationID),
	}
	if n.IsGroup && c.groups != nil {
		md, err := c.groups.GroupMetadata(ctx, d.ConversationID)
		if err != nil {
			metrics.GroupLookupFail.Inc()
			c.log.Debug("group metadata lookup failed",
				zap.String("conv_id", d.ConversationID),
				zap.Error(err),
			)
		} else {
			n.GroupName = md.Subject
		}
	}
	n.Text = FormatNotification(n.Deleter, n.Sender, n.IsGroup, n.GroupName)
	return n
}

// FormatNotification renders the alert lines. The group line is present
// only for groups with a known name, and no blank line is left in its place.
func FormatNotification(deleter, sender string, isGroup bool, groupName string) string {
	var b strings.Builder
	b.WriteString(alertHeader)
	b.WriteString("\n• Deleted by: ")
	b.WriteString(MentionTag(deleter))
	b.WriteString("\n• Original sender: ")
	b.WriteString(MentionTag(sender))
	if isGroup && groupName != "" {
		b.WriteString("\n• Group: ")
		b.WriteString(groupName)
	}
	b.WriteString("\n• Chat type: ")
	if isGroup {
		b.WriteString(chatTypeGroup)
	} else {
		b.WriteString(chatTypePrivate)
	}
	return b.String()
}

// MentionTag renders jid as "@user", dropping everything from the first '@'.
func MentionTag(jid string) string {
	user, _, _ := strings.Cut(jid, "@")
	return "@" + user
}
