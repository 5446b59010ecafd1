package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"shipdoc/internal"
	"shipdoc/internal/config"
	"shipdoc/internal/logger"
)

const provider = "gmail"

type Connector struct {
	service *gmail.Service
	query   string
	log     *zap.Logger
}

func NewConnector(ctx context.Context, cfg config.Config, log *zap.Logger) (*Connector, error) {
	for _, req := range []struct{ name, value string }{
		{"GMAIL_CLIENT_ID", cfg.GmailClientID},
		{"GMAIL_CLIENT_SECRET", cfg.GmailClientSecret},
		{"GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken},
	} {
		if err := cfg.Require(req.name, req.value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, &internal.ExternalServiceError{Service: provider, Err: err}
	}

	return &Connector{service: svc, query: cfg.GmailQuery, log: logger.OrNop(log)}, nil
}

func (c *Connector) Provider() string { return provider }

// FetchInbox lists up to max messages under label matching the configured
// search query and downloads each in raw RFC 822 form.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	listCall := c.service.Users.Messages.List("me").LabelIds(label).MaxResults(int64(max))
	if strings.TrimSpace(c.query) != "" {
		listCall = listCall.Q(c.query)
	}
	listResp, err := listCall.Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		msg, err := c.service.Users.Messages.Get("me", ref.Id).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		if msg.Raw == "" {
			continue
		}
		raw, err := decodeBase64URL(msg.Raw)
		if err != nil {
			return nil, err
		}
		out = append(out, toFetched(ref.Id, msg.InternalDate, raw, c.log))
	}

	return out, nil
}

// toFetched reads the envelope headers from the raw message itself so a
// single API call per message is enough.
func toFetched(id string, internalDateMs int64, raw []byte, log *zap.Logger) internal.FetchedMailMessage {
	out := internal.FetchedMailMessage{
		Provider:   provider,
		MessageID:  id,
		ReceivedAt: time.UnixMilli(internalDateMs).UTC().Format(time.RFC3339),
		Raw:        raw,
	}
	m, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		log.Debug("gmail message headers unreadable", zap.String("id", id), zap.Error(err))
		return out
	}
	out.Subject = decodeHeader(m.Header.Get("Subject"))
	out.From = m.Header.Get("From")
	if mid := strings.TrimSpace(m.Header.Get("Message-ID")); mid != "" {
		out.MessageID = mid
	}
	if internalDateMs == 0 {
		if t, err := m.Header.Date(); err == nil {
			out.ReceivedAt = t.UTC().Format(time.RFC3339)
		}
	}
	return out
}

func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	if s, err := dec.DecodeHeader(v); err == nil {
		return s
	}
	return v
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
