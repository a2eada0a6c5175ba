package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
)

const (
	sendTimeout = 10 * time.Second
	maxListed   = 3
)

// Poster is the subset of *slack.Client used here.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Observer counts delivery attempts.
type Observer interface {
	ObserveNotification(err error)
}

// Slack posts a KEV alert to a channel when an assessed product appears in
// the known-exploited catalog.
type Slack struct {
	Client   Poster
	Channel  string
	Observer Observer
}

// NewSlack builds a notifier from a bot token. apiURL overrides the Slack
// endpoint and is mostly useful in tests.
func NewSlack(token, channel, apiURL string, observer Observer) *Slack {
	var opts []slack.Option
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	return &Slack{
		Client:   slack.New(token, opts...),
		Channel:  channel,
		Observer: observer,
	}
}

func (s *Slack) Notify(ctx context.Context, a *assessment.Assessment) error {
	if a == nil {
		return errors.New("nil assessment")
	}
	if s.Channel == "" {
		return errors.New("slack channel is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, _, err := s.Client.PostMessageContext(ctx, s.Channel,
		slack.MsgOptionText(Message(a), false),
	)
	if s.Observer != nil {
		s.Observer.ObserveNotification(err)
	}
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	return nil
}

// Message renders the alert text in Slack mrkdwn.
func Message(a *assessment.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":rotating_light: *%s* (%s) is listed in CISA KEV with %d known exploited vulnerabilities\n",
		a.Entity.Product, vendorOr(a.Entity.Vendor), a.Kev.Count)

	shown := 0
	for _, m := range a.Kev.Matches {
		if shown == maxListed {
			break
		}
		fmt.Fprintf(&b, "• `%s` %s\n", m.CVEID, m.VulnerabilityName)
		shown++
	}
	// Matches is capped by the catalog; Count is the full total
	if rest := a.Kev.Count - shown; rest > 0 {
		fmt.Fprintf(&b, "• ...and %d more\n", rest)
	}

	if c := a.Classification; c.PrimaryCategory != "" {
		fmt.Fprintf(&b, "Category: %s / %s\n", c.PrimaryCategory, c.PrimarySubcategory)
	}
	if a.Suggestions.Recommendation != "" {
		fmt.Fprintf(&b, "Recommendation: %s\n", a.Suggestions.Recommendation)
	}
	fmt.Fprintf(&b, "Cache key: `%s`", a.Cache.Key)
	return b.String()
}

func vendorOr(v string) string {
	if v == "" {
		return "unknown vendor"
	}
	return v
}
