package mailbox

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/carehub/internal/gateway"
)

// PasswordFunc looks up the mailbox password, typically from the keyring.
type PasswordFunc func() (string, error)

// IMAPClient wraps go-imap v2 for connecting to and querying the
// notification mailbox.
type IMAPClient struct {
	host     string
	port     string
	username string
	folder   string
	password PasswordFunc
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(host, port, username, folder string, password PasswordFunc, tls bool) *IMAPClient {
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		folder:   folder,
		password: password,
		tls:      tls,
	}
}

// Connect dials the server, logs in and selects the notification folder.
// The caller must Logout the returned client.
func (c *IMAPClient) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	password, err := c.password()
	if err != nil {
		return nil, &gateway.AuthError{
			Message: fmt.Sprintf("no mailbox password for %s: %v", c.username, err),
		}
	}

	var client *imapclient.Client
	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &gateway.AuthError{
			Message: fmt.Sprintf("authentication failed for %s: %v", c.username, err),
		}
	}

	if _, err := client.Select(c.folder, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", c.folder, err)
	}

	return client, nil
}

// FetchAll returns every message in the folder with its flags,
// envelope, and a peeked body (the \Seen flag is left untouched).
func (c *IMAPClient) FetchAll(ctx context.Context) ([]Entry, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	entries, err := collectEntries(func() (*imapclient.FetchMessageBuffer, error) {
		msg := fetchCmd.Next()
		if msg == nil {
			return nil, nil
		}
		return msg.Collect()
	}, bodySection)
	if err != nil {
		return nil, err
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	return entries, nil
}

// collectEntries drains next until it returns a nil buffer. A message that
// cannot be read fails the whole fetch so the list is never partial.
func collectEntries(next func() (*imapclient.FetchMessageBuffer, error), body *imap.FetchItemBodySection) ([]Entry, error) {
	var entries []Entry
	for {
		buf, err := next()
		if err != nil {
			return nil, fmt.Errorf("reading message %d: %w", len(entries)+1, err)
		}
		if buf == nil {
			return entries, nil
		}

		e := Entry{UID: uint32(buf.UID)}
		if buf.Envelope != nil {
			e.Subject = buf.Envelope.Subject
			e.Date = buf.Envelope.Date
		}
		for _, flag := range buf.Flags {
			if flag == imap.FlagSeen {
				e.Seen = true
			}
		}
		e.Body = buf.FindBodySection(body)
		entries = append(entries, e)
	}
}

// MarkSeen sets \Seen on uid. It returns gateway.ErrNotFound when no
// message with that UID exists in the folder.
func (c *IMAPClient) MarkSeen(ctx context.Context, uid uint32) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	uidSet := imap.UIDSetNum(imap.UID(uid))

	searchData, err := client.UIDSearch(&imap.SearchCriteria{
		UID: []imap.UIDSet{uidSet},
	}, nil).Wait()
	if err != nil {
		return fmt.Errorf("searching UID %d: %w", uid, err)
	}
	if len(searchData.AllUIDs()) == 0 {
		return fmt.Errorf("UID %d: %w", uid, gateway.ErrNotFound)
	}

	return client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close()
}

// MarkAllSeen sets \Seen on every unseen message.
func (c *IMAPClient) MarkAllSeen(ctx context.Context) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	searchData, err := client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil
	}

	return client.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close()
}
