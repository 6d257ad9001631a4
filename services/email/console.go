package emailsvc

import (
	"fmt"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/trezcool/ead/core"
)

// Outbox records the messages delivered by a ConsoleService.
type Outbox struct {
	mu   sync.Mutex
	msgs []core.EmailMessage
}

// Messages returns a copy of the delivered messages, oldest first.
func (o *Outbox) Messages() []core.EmailMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]core.EmailMessage(nil), o.msgs...)
}

func (o *Outbox) Reset() {
	o.mu.Lock()
	o.msgs = nil
	o.mu.Unlock()
}

func (o *Outbox) add(msg core.EmailMessage) {
	o.mu.Lock()
	o.msgs = append(o.msgs, msg)
	o.mu.Unlock()
}

// ConsoleService logs emails as MIME text instead of sending them. Used in DEBUG mode & tests.
type ConsoleService struct {
	Outbox *Outbox

	appName         string
	frontendBaseURL string
	from            mail.Address
	subjPrefix      string
	quiet           bool // deliver to the Outbox only
	sync            bool // deliver before SendMessages returns
	logger          core.Logger
}

var _ core.EmailService = (*ConsoleService)(nil)

func NewConsoleService(conf *core.Config, logger core.Logger) *ConsoleService {
	return &ConsoleService{
		Outbox:          new(Outbox),
		appName:         conf.AppName,
		frontendBaseURL: conf.FrontendBaseURL,
		from:            conf.DefaultFromEmail(),
		subjPrefix:      "[" + conf.AppName + "] ",
		logger:          logger,
	}
}

// NewConsoleServiceMock returns a silent ConsoleService delivering synchronously, for tests.
func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleService {
	svc := NewConsoleService(conf, logger)
	svc.quiet = true
	svc.sync = true
	return svc
}

func (svc *ConsoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sync {
			svc.deliver(msg)
		} else {
			go svc.deliver(msg)
		}
	}
}

func (svc *ConsoleService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(svc.appName, svc.frontendBaseURL); err != nil {
		svc.logger.Error("rendering email", errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	if !svc.quiet {
		body, err := svc.format(*msg)
		if err != nil {
			svc.logger.Error("formatting email", err)
			return
		}
		svc.logger.Info(body)
	}
	svc.Outbox.add(*msg)
}

// format renders msg as a multipart/alternative MIME message.
func (svc *ConsoleService) format(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)
	parts := multipart.NewWriter(body)

	headers := [][2]string{
		{"From", svc.from.String()},
		{"MIME-Version", "1.0"},
		{"Date", time.Now().Format(time.RFC1123Z)},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"To", joinAddresses(msg.To)},
		{"CC", joinAddresses(msg.Cc)},
		{"BCC", joinAddresses(msg.Bcc)},
		{"Content-Type", "multipart/alternative; boundary=" + parts.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(body, "%s: %s\r\n", h[0], h[1])
	}
	body.WriteString("\r\n")

	contents := [][2]string{{"text/plain", msg.TextContent}, {"text/html", msg.HTMLContent}}
	for _, c := range contents {
		if c[1] == "" && c[0] == "text/html" {
			continue
		}
		w, err := parts.CreatePart(textproto.MIMEHeader{"Content-Type": {c[0] + "; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrapf(err, "creating %s part", c[0])
		}
		fmt.Fprintf(w, "%s\r\n", c[1])
	}
	if err := parts.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	return body.String(), nil
}

func joinAddresses(addrs []mail.Address) string {
	return strings.Join(lo.Map(addrs, func(a mail.Address, _ int) string { return a.String() }), ", ")
}
