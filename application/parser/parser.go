package parser

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"catalog_scraper/infrastructure/config"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Parser turns one catalog item into a ProductRecord
type Parser struct {
	titleSelector    string
	fragmentSelector string
	delimiters       []string
	logger           *logrus.Logger
}

// NewParser - creates a parser for target's item layout
func NewParser(target config.Target, logger *logrus.Logger) *Parser {
	return &Parser{
		titleSelector:    target.TitleSelector,
		fragmentSelector: target.FragmentSelector,
		delimiters:       target.FieldDelimiters,
		logger:           logger,
	}
}

// ParseAll - parses items in order. The first malformed item fails the whole pass.
func (p *Parser) ParseAll(ctx context.Context, items []interfaces.Element) ([]entities.ProductRecord, error) {
	records := make([]entities.ProductRecord, 0, len(items))
	for i, item := range items {
		record, err := p.Parse(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		records = append(records, record)
	}
	p.logger.WithField("count", len(records)).Info("extracted products")
	return records, nil
}

// Parse - reads the title and labelled fragments of item
func (p *Parser) Parse(ctx context.Context, item interfaces.Element) (entities.ProductRecord, error) {
	titles, err := item.Query(ctx, p.titleSelector)
	if err != nil {
		return entities.ProductRecord{}, fmt.Errorf("%w: %v", entities.ErrNavigation, err)
	}
	if len(titles) == 0 {
		return entities.ProductRecord{}, fmt.Errorf("%w: item has no title %s", entities.ErrDataIntegrity, p.titleSelector)
	}
	title, err := titles[0].Text(ctx)
	if err != nil {
		return entities.ProductRecord{}, fmt.Errorf("%w: %v", entities.ErrNavigation, err)
	}

	elements, err := item.Query(ctx, p.fragmentSelector)
	if err != nil {
		return entities.ProductRecord{}, fmt.Errorf("%w: %v", entities.ErrNavigation, err)
	}
	if len(elements) > len(p.delimiters) {
		elements = elements[:len(p.delimiters)]
	}

	fragments := make([]string, 0, len(elements))
	for _, el := range elements {
		text, err := el.Text(ctx)
		if err != nil {
			return entities.ProductRecord{}, fmt.Errorf("%w: %v", entities.ErrNavigation, err)
		}
		fragments = append(fragments, text)
	}

	return ParseFragments(title, fragments, p.delimiters)
}

// ParseFragments - builds a record from the title and the labelled fragments in
// field order (ID, Shade, Details, Guarantee). Absent fragments leave the field empty.
func ParseFragments(title string, fragments []string, delimiters []string) (entities.ProductRecord, error) {
	values := make([]string, 4)
	for i, fragment := range fragments {
		if i >= len(values) || i >= len(delimiters) {
			break
		}
		value, err := ValueAfter(fragment, delimiters[i])
		if err != nil {
			return entities.ProductRecord{}, err
		}
		values[i] = value
	}

	return entities.ProductRecord{
		Name:      strings.TrimSpace(title),
		ID:        values[0],
		Shade:     values[1],
		Details:   values[2],
		Guarantee: values[3],
	}, nil
}

// ValueAfter - returns the trimmed text right of the first delimiter, without a
// leading colon: "ID: 48213" with ":" and "Shade: Rose" with "Shade" give the value
func ValueAfter(text, delimiter string) (string, error) {
	_, after, found := strings.Cut(text, delimiter)
	if !found {
		return "", fmt.Errorf("%w: fragment %q has no %q", entities.ErrDataIntegrity, strings.TrimSpace(text), delimiter)
	}
	after = strings.TrimSpace(after)
	return strings.TrimSpace(strings.TrimPrefix(after, ":")), nil
}
