package smtp

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/mail"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"blacklist/backend/internal/monitoring"
)

// MaxMessageBytes 单封邮件读取上限
const MaxMessageBytes = 10 << 20

// lookupTimeout 单次黑名单查询的超时
const lookupTimeout = 5 * time.Second

// Checker 查询发件地址是否被拉黑
type Checker interface {
	IsBlacklisted(ctx context.Context, email string) (bool, error)
}

var (
	errSenderBlacklisted = &gosmtp.SMTPError{
		Code:         550,
		EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
		Message:      "sender address is blacklisted",
	}
	errLookupFailed = &gosmtp.SMTPError{
		Code:         451,
		EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
		Message:      "temporary failure checking sender, try again later",
	}
	errTooManyConnections = &gosmtp.SMTPError{
		Code:         421,
		EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
		Message:      "too many connections, try again later",
	}
	errNoSender = &gosmtp.SMTPError{
		Code:         503,
		EnhancedCode: gosmtp.EnhancedCode{5, 5, 1},
		Message:      "MAIL FROM required before RCPT TO",
	}
)

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个黑名单策略网关：MAIL FROM 命中黑名单返回 550 5.7.1，
// 其余邮件接收后只记录日志并丢弃，不做存储和转发。
type Backend struct {
	checker Checker
	limiter *ConnectionLimiter  // 可以为 nil
	metrics *monitoring.Metrics // 可以为 nil
	log     *zap.Logger
}

// NewBackend 创建 SMTP Backend。
func NewBackend(checker Checker, limiter *ConnectionLimiter, metrics *monitoring.Metrics, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		checker: checker,
		limiter: limiter,
		metrics: metrics,
		log:     log,
	}
}

// NewServer 按默认超时和大小限制创建 go-smtp 服务器
func NewServer(be *Backend, addr, domain string) *gosmtp.Server {
	server := gosmtp.NewServer(be)
	server.Addr = addr
	server.Domain = domain
	server.ReadTimeout = 10 * time.Second
	server.WriteTimeout = 10 * time.Second
	server.MaxMessageBytes = MaxMessageBytes
	server.MaxRecipients = 50
	return server
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	if b.limiter != nil && !b.limiter.Acquire() {
		b.log.Warn("smtp connection rejected by limiter")
		return nil, errTooManyConnections
	}

	remote := ""
	if c != nil && c.Conn() != nil {
		remote = c.Conn().RemoteAddr().String()
	}

	return &session{
		backend: b,
		remote:  remote,
	}, nil
}

type session struct {
	backend    *Backend
	remote     string
	from       string
	recipients []string
}

// Mail 处理 MAIL 命令，发件地址命中黑名单时拒绝。
func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	addr := normalizeAddress(from)
	if addr == "" {
		// 空反向路径（退信）不做检查
		s.from = "<>"
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	blacklisted, err := s.backend.checker.IsBlacklisted(ctx, addr)
	if err != nil {
		s.backend.log.Error("blacklist lookup failed", zap.String("from", addr), zap.Error(err))
		if s.backend.metrics != nil {
			s.backend.metrics.RecordError("lookup_failed", "smtp")
		}
		return errLookupFailed
	}
	if blacklisted {
		s.backend.log.Info("rejected blacklisted sender",
			zap.String("from", addr),
			zap.String("remote_addr", s.remote))
		if s.backend.metrics != nil {
			s.backend.metrics.RecordSMTPRejection()
		}
		return errSenderBlacklisted
	}

	s.from = addr
	return nil
}

// Rcpt 处理 RCPT 命令。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	if s.from == "" {
		return errNoSender
	}
	s.recipients = append(s.recipients, normalizeAddress(to))
	return nil
}

// Data 读取邮件内容后丢弃，只记录摘要。
func (s *session) Data(r io.Reader) error {
	n, subject, err := summarize(io.LimitReader(r, MaxMessageBytes))
	if err != nil {
		return err
	}

	s.backend.log.Info("accepted and discarded message",
		zap.String("from", s.from),
		zap.Strings("to", s.recipients),
		zap.String("subject", subject),
		zap.Int64("bytes", n),
		zap.String("remote_addr", s.remote))
	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.from = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	if s.backend.limiter != nil {
		s.backend.limiter.Release()
	}
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}

// summarize 读完邮件并返回字节数和解码后的主题，头部无法解析时主题为空
func summarize(r io.Reader) (int64, string, error) {
	counter := &countingReader{r: r}

	subject := ""
	if msg, err := mail.ReadMessage(counter); err == nil {
		subject = decodeHeader(msg.Header.Get("Subject"))
	}

	if _, err := io.Copy(io.Discard, counter); err != nil && !errors.Is(err, io.EOF) {
		return counter.n, subject, err
	}
	return counter.n, subject, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
