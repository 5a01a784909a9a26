package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nhle/carehub/internal/model"
)

// fixtureFile is the on-disk layout of a seed file.
type fixtureFile struct {
	Notifications []fixtureRecord `yaml:"notifications"`
}

// fixtureRecord is one seed notification. Either CreatedAt or Age may be
// set; Age is relative to the load time so demo data stays fresh.
type fixtureRecord struct {
	ID        string    `yaml:"id"`
	Recipient string    `yaml:"recipient"`
	Kind      string    `yaml:"kind"`
	Message   string    `yaml:"message"`
	CreatedAt time.Time `yaml:"created_at"`
	Age       string    `yaml:"age"`
	Read      bool      `yaml:"read"`
}

// LoadFixturesFile opens path and seeds s with its notifications.
func LoadFixturesFile(ctx context.Context, s Store, path string, now time.Time) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening fixtures %s: %w", path, err)
	}
	defer f.Close()

	n, err := LoadFixtures(ctx, s, f, now)
	if err != nil {
		return n, fmt.Errorf("fixtures %s: %w", path, err)
	}
	return n, nil
}

// LoadFixtures decodes YAML seed data from r and inserts every record.
// It returns the number of notifications created.
func LoadFixtures(ctx context.Context, s Store, r io.Reader, now time.Time) (int, error) {
	var file fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("decoding fixtures: %w", err)
	}

	created := 0
	for i, rec := range file.Notifications {
		n, err := rec.toNotification(now)
		if err != nil {
			return created, fmt.Errorf("fixture #%d: %w", i+1, err)
		}
		if _, err := s.CreateNotification(ctx, n); err != nil {
			return created, fmt.Errorf("fixture #%d: %w", i+1, err)
		}
		created++
	}

	return created, nil
}

func (r fixtureRecord) toNotification(now time.Time) (model.Notification, error) {
	kind, err := model.ParseKind(r.Kind)
	if err != nil {
		return model.Notification{}, err
	}

	createdAt := r.CreatedAt
	if r.Age != "" {
		age, err := time.ParseDuration(r.Age)
		if err != nil {
			return model.Notification{}, fmt.Errorf("parsing age %q: %w", r.Age, err)
		}
		createdAt = now.Add(-age)
	}

	return model.Notification{
		ID:          r.ID,
		RecipientID: r.Recipient,
		Kind:        kind,
		Message:     r.Message,
		CreatedAt:   createdAt,
		Read:        r.Read,
	}, nil
}
