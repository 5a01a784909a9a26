package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/carehub/internal/gateway"
)

// feed returns a next func yielding bufs, then err if set, then the end.
func feed(err error, bufs ...*imapclient.FetchMessageBuffer) func() (*imapclient.FetchMessageBuffer, error) {
	i := 0
	return func() (*imapclient.FetchMessageBuffer, error) {
		if i < len(bufs) {
			i++
			return bufs[i-1], nil
		}
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func TestCollectEntries(t *testing.T) {
	day := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	entries, err := collectEntries(feed(nil,
		&imapclient.FetchMessageBuffer{
			UID:      4,
			Envelope: &imap.Envelope{Subject: "[Alert] Fall detected", Date: day},
			Flags:    []imap.Flag{imap.FlagSeen},
		},
		&imapclient.FetchMessageBuffer{UID: 5},
	), &imap.FetchItemBodySection{Peek: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, uint32(4), entries[0].UID)
	assert.Equal(t, "[Alert] Fall detected", entries[0].Subject)
	assert.Equal(t, day, entries[0].Date)
	assert.True(t, entries[0].Seen)

	assert.Equal(t, uint32(5), entries[1].UID)
	assert.False(t, entries[1].Seen)
}

func TestCollectEntries_UnreadableMessageFailsFetch(t *testing.T) {
	broken := errors.New("malformed literal")
	entries, err := collectEntries(feed(broken,
		&imapclient.FetchMessageBuffer{UID: 4},
	), &imap.FetchItemBodySection{Peek: true})

	assert.ErrorIs(t, err, broken)
	assert.Nil(t, entries)
}

func TestFetch_ClientFailureIsFetchError(t *testing.T) {
	g := &Gateway{client: &fakeMail{err: errors.New("reading message 2: malformed literal")}, owner: "u"}

	items, err := g.Fetch(context.Background(), "u")
	assert.Nil(t, items)
	var fe *gateway.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "u", fe.UserID)
}
