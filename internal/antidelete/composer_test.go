package antidelete

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockGroups struct {
	mock.Mock
}

func (m *mockGroups) GroupMetadata(ctx context.Context, conversationID string) (GroupMetadata, error) {
	args := m.Called(ctx, conversationID)
	return args.Get(0).(GroupMetadata), args.Error(1)
}

func TestMentionTag(t *testing.T) {
	assert.Equal(t, "@123", MentionTag("123@s.whatsapp.net"))
	assert.Equal(t, "@123", MentionTag("123@a@b"))
	assert.Equal(t, "@P1", MentionTag("P1"))
}

func TestFormatNotificationPrivate(t *testing.T) {
	got := FormatNotification("2@s.whatsapp.net", "1@s.whatsapp.net", false, "ignored")
	want := strings.Join([]string{
		alertHeader,
		"• Deleted by: @2",
		"• Original sender: @1",
		"• Chat type: Private",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatNotificationGroup(t *testing.T) {
	got := FormatNotification("2@s.whatsapp.net", "1@s.whatsapp.net", true, "Family")
	assert.Contains(t, got, "\n• Group: Family\n")
	assert.True(t, strings.HasSuffix(got, "• Chat type: Group"))

	got = FormatNotification("2@s.whatsapp.net", "1@s.whatsapp.net", true, "")
	assert.NotContains(t, got, "Group:")
	assert.NotContains(t, got, "\n\n", "no gap where the group line would be")
	assert.True(t, strings.HasSuffix(got, "• Chat type: Group"))
}

func TestComposeGroupLooksUpSubject(t *testing.T) {
	groups := &mockGroups{}
	groups.On("GroupMetadata", mock.Anything, "G1@g.us").Return(GroupMetadata{Subject: "Team"}, nil).Once()

	c := NewComposer(groups, nil)
	n := c.Compose(context.Background(), Deletion{
		ConversationID: "G1@g.us",
		Deleter:        "P2@s.whatsapp.net",
		Original:       textRecord("G1@g.us", "m1", "P1@s.whatsapp.net", "hi"),
	})

	assert.True(t, n.IsGroup)
	assert.Equal(t, "Team", n.GroupName)
	assert.Contains(t, n.Text, "• Group: Team")
	assert.Equal(t, []string{"P2@s.whatsapp.net", "P1@s.whatsapp.net"}, n.Mentions())
	groups.AssertExpectations(t)
}

func TestComposeGroupLookupFailureOmitsLine(t *testing.T) {
	groups := &mockGroups{}
	groups.On("GroupMetadata", mock.Anything, "G1@g.us").Return(GroupMetadata{}, errors.New("boom"))

	c := NewComposer(groups, nil)
	n := c.Compose(context.Background(), Deletion{
		ConversationID: "G1@g.us",
		Deleter:        "P2@s.whatsapp.net",
		Original:       textRecord("G1@g.us", "m1", "P1@s.whatsapp.net", "hi"),
	})

	assert.NotContains(t, n.Text, "Group:")
	assert.Contains(t, n.Text, "• Chat type: Group")
}

func TestComposePrivateSkipsLookup(t *testing.T) {
	groups := &mockGroups{}
	c := NewComposer(groups, nil)
	n := c.Compose(context.Background(), Deletion{
		ConversationID: "P1@s.whatsapp.net",
		Deleter:        "P1@s.whatsapp.net",
		Original:       textRecord("P1@s.whatsapp.net", "m1", "P1@s.whatsapp.net", "hi"),
	})
	assert.False(t, n.IsGroup)
	assert.Contains(t, n.Text, "• Chat type: Private")
	groups.AssertNotCalled(t, "GroupMetadata", mock.Anything, mock.Anything)
}
