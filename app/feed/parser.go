package feed

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

type DocumentKind int

const (
	DocumentUnrecognized DocumentKind = iota
	DocumentRSS
	DocumentAtom
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentRSS:
		return "rss"
	case DocumentAtom:
		return "atom"
	default:
		return "unrecognized"
	}
}

// Document is a parsed feed body. Exactly one of RSS or Atom is set,
// matching Kind; both are nil for DocumentUnrecognized.
type Document struct {
	Kind DocumentKind
	RSS  *rss.Feed
	Atom *atom.Feed
}

// ErrUnsupportedFormat marks a feed body in a format the normalizer cannot read.
var ErrUnsupportedFormat = errors.New("unsupported feed format")

// ParseError reports a body that looked like a feed but could not be structured.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s feed: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Parser struct {
	rssParser  *rss.Parser
	atomParser *atom.Parser
}

func NewParser() *Parser {
	return &Parser{
		rssParser:  &rss.Parser{},
		atomParser: &atom.Parser{},
	}
}

// Run detects the syndication format once and parses data into the matching
// variant. JSON feeds come back as DocumentUnrecognized; bodies that are not
// a feed at all are a ParseError.
func (p *Parser) Run(data []byte) (*Document, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		parsed, err := p.rssParser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, &ParseError{Format: DocumentRSS.String(), Err: err}
		}
		return &Document{Kind: DocumentRSS, RSS: parsed}, nil

	case gofeed.FeedTypeAtom:
		parsed, err := p.atomParser.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, &ParseError{Format: DocumentAtom.String(), Err: err}
		}
		return &Document{Kind: DocumentAtom, Atom: parsed}, nil

	case gofeed.FeedTypeJSON:
		return &Document{Kind: DocumentUnrecognized}, nil

	default:
		return nil, &ParseError{Format: "unknown", Err: fmt.Errorf("no RSS or Atom root element")}
	}
}
