package subscription

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Recorder observes per-line outcomes. Implementations must be safe for
// concurrent use; metrics.Collector is the production one.
type Recorder interface {
	RecordLine(protocol Protocol, accepted bool)
}

type lineParser struct {
	scheme   string
	protocol Protocol
	parse    func(line string) (Node, error)
}

// lineParsers is the dispatch table. Adding a protocol means adding a row.
var lineParsers = []lineParser{
	{scheme: ssScheme, protocol: ProtocolSS, parse: asNodeParser(ParseSS)},
	{scheme: trojanScheme, protocol: ProtocolTrojan, parse: asNodeParser(ParseTrojan)},
	{scheme: vmessScheme, protocol: ProtocolVmess, parse: asNodeParser(ParseVmess)},
}

func asNodeParser[T Node](fn func(string) (T, error)) func(string) (Node, error) {
	return func(line string) (Node, error) {
		n, err := fn(line)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
}

// Parser splits a decoded subscription document into lines and routes each
// line to the parser registered for its scheme prefix. It holds no mutable
// state and may be shared between goroutines.
type Parser struct {
	logger   logrus.FieldLogger
	recorder Recorder
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for rejected lines.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the recorder notified for every recognized line.
func WithRecorder(r Recorder) Option {
	return func(p *Parser) { p.recorder = r }
}

// NewParser creates a Parser. Without WithLogger nothing is logged.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: discardLogger()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses content with a Parser that neither logs nor records.
func Parse(content string) *Result {
	return defaultParser.Parse(content)
}

type numberedLine struct {
	no   int
	text string
}

// Parse decodes every recognized line of content. Lines with an unknown
// scheme are ignored. A line that fails to parse is logged, recorded in
// Result.Rejected, and skipped; it never aborts the batch.
func (p *Parser) Parse(content string) *Result {
	lines := splitLines(content)
	res := newResult()

	for _, lp := range lineParsers {
		for _, l := range lines {
			if !strings.HasPrefix(l.text, lp.scheme) {
				continue
			}
			node, err := lp.parse(l.text)
			if p.recorder != nil {
				p.recorder.RecordLine(lp.protocol, err == nil)
			}
			if err != nil {
				p.logger.WithFields(logrus.Fields{
					"protocol": lp.protocol,
					"line":     l.no,
				}).WithError(err).Debug("skipping malformed subscription line")
				res.Rejected = append(res.Rejected, Rejection{
					Protocol: lp.protocol,
					Line:     l.no,
					Raw:      l.text,
					Err:      err,
				})
				continue
			}
			res.add(node)
		}
	}
	return res
}

// splitLines splits on "\n" (a trailing "\r" is trimmed with the rest of
// the surrounding whitespace) and drops blank lines. Line numbers are
// 1-based positions in the original content.
func splitLines(content string) []numberedLine {
	raw := strings.Split(content, "\n")
	out := make([]numberedLine, 0, len(raw))
	for i, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, numberedLine{no: i + 1, text: line})
	}
	return out
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
