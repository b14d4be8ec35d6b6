package opensubtitles

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/MeetLima/osdbinfos/internal/constants"
	coreErrors "github.com/MeetLima/osdbinfos/pkg/core/errors"
	"github.com/MeetLima/osdbinfos/pkg/core/session"
	"github.com/MeetLima/osdbinfos/pkg/core/store"
	log "github.com/sirupsen/logrus"
)

// Config holds the configuration for the OpenSubtitles client.
type Config struct {
	Username  string // empty for anonymous access
	Password  string
	Language  string        // Optional: defaults to "en"
	UserAgent string        // Optional: defaults to constants.DefaultUserAgent
	Endpoint  string        // Optional: override the XML-RPC endpoint
	Timeout   time.Duration // Optional: bound on every remote call

	// HashWorkers is the number of files hashed concurrently by LookupFiles.
	HashWorkers int

	Caller Caller           // Optional: defaults to an XmlRpcTransport for Endpoint
	Store  store.Store      // Optional: where the session is persisted; nil keeps it in memory
	Logger *log.Logger      // Optional
	Now    func() time.Time // Optional: clock used for token expiry
}

// Client is the OpenSubtitles XML-RPC client. Calls on one Client are
// serialized, so a Client may be shared between goroutines.
type Client struct {
	config  Config
	caller  Caller
	session *session.State
	logger  *log.Logger
	now     func() time.Time

	mu sync.Mutex // held for "ensure session, call, persist"
}

// NewClient creates a new OpenSubtitles client and loads any persisted session.
func NewClient(config Config) (*Client, error) {
	if config.Language == "" {
		config.Language = constants.DefaultLanguage
	}
	if config.UserAgent == "" {
		config.UserAgent = constants.DefaultUserAgent
	}
	if config.Endpoint == "" {
		config.Endpoint = constants.DefaultEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = constants.DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = log.New()
		config.Logger.SetLevel(log.InfoLevel)
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	endpoint, err := url.ParseRequestURI(config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid Endpoint provided: %w", err)
	}

	caller := config.Caller
	if caller == nil {
		caller, err = NewXmlRpcTransport(config.Endpoint, config.UserAgent, &http.Client{Timeout: config.Timeout})
		if err != nil {
			return nil, err
		}
	}

	identity := config.Username
	if identity == "" {
		identity = "anonymous"
	}
	key := "session/" + identity + "@" + endpoint.Host

	c := &Client{
		config:  config,
		caller:  caller,
		session: session.NewState(config.Store, key, config.Now, config.Logger),
		logger:  config.Logger,
		now:     config.Now,
	}
	c.session.Load(context.Background())
	return c, nil
}

// Session returns a copy of the current session.
func (c *Client) Session() session.Session {
	return c.session.Current()
}

// SessionValid reports whether the next call can reuse the current token.
func (c *Client) SessionValid() bool {
	return c.session.IsValid()
}

// login performs the LogIn call and returns the token.
func (c *Client) login(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	reply, err := c.caller.Call(ctx, "LogIn", c.config.Username, c.config.Password, c.config.Language, c.config.UserAgent)
	if err != nil {
		c.logger.WithError(err).Error("LogIn call failed")
		return "", err
	}
	if status, ok := reply["status"].(string); ok {
		if err := coreErrors.FromStatus(status); err != nil {
			c.logger.WithError(err).Error("LogIn was refused")
			return "", err
		}
	}
	token, _ := reply["token"].(string)
	c.logger.WithField("user", c.config.Username).Debug("Logged in")
	return token, nil
}

// call ensures a session, invokes method and checks the reply status. args
// builds the argument list from the token argument. Callers hold c.mu.
func (c *Client) call(ctx context.Context, method string, args func(token interface{}) []interface{}) (map[string]interface{}, error) {
	if err := c.session.Refresh(ctx, c.login); err != nil {
		return nil, err
	}

	started := c.now()
	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	reply, err := c.caller.Call(callCtx, method, args(c.session.TokenArg())...)
	if err != nil {
		c.logger.WithError(err).Errorf("%s call failed", method)
		return nil, err
	}

	status, _ := reply["status"].(string)
	if err := coreErrors.FromStatus(status); err != nil {
		if errors.Is(err, coreErrors.ErrNoSession) {
			c.session.Invalidate()
		}
		c.logger.WithError(err).Errorf("%s returned an error status", method)
		return nil, err
	}

	c.session.Touch(started)
	return reply, nil
}

// persist stores the session. Failures are logged, not returned.
func (c *Client) persist(ctx context.Context) {
	if err := c.session.Persist(ctx); err != nil {
		c.logger.WithError(err).Warn("Could not store session state")
	}
}
