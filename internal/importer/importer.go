// Package importer loads markdown flashcards from a directory or git
// repository into a remote deck.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/knolboard/internal/api"
	"github.com/conorfennell/knolboard/internal/domain"
	"github.com/conorfennell/knolboard/internal/gitsource"
	"github.com/conorfennell/knolboard/internal/knol"
	"github.com/conorfennell/knolboard/internal/parser"
	"github.com/conorfennell/knolboard/internal/storage"
)

// CardAPI is the remote deck access the importer needs. *api.Client satisfies it.
type CardAPI interface {
	ListCards(ctx context.Context, deckID string) ([]domain.Card, error)
	CreateCard(ctx context.Context, deckID string, in api.CardInput) (domain.Card, error)
	DeleteCard(ctx context.Context, cardID string) error
}

// Ledger remembers sources and the cards imported from them. *storage.DB satisfies it.
type Ledger interface {
	UpsertSource(ctx context.Context, deckID, path string) (*storage.Source, error)
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	UpdateSourceLastScanned(ctx context.Context, sourceID int64) error
	InsertImportedCard(ctx context.Context, c storage.ImportedCard) error
	FindImportedCard(ctx context.Context, deckID, hash string) (*storage.ImportedCard, error)
	GetImportedCardsBySourceID(ctx context.Context, sourceID int64) ([]storage.ImportedCard, error)
	DeleteImportedCard(ctx context.Context, deckID, hash string, sourceID int64) error
}

// Options configures an Importer.
type Options struct {
	// ReposDir is where git sources are checked out.
	ReposDir string
	// Progress receives git clone and pull output. May be nil.
	Progress io.Writer
	Logger   *slog.Logger
}

// Report summarises one import.
type Report struct {
	DeckID  string
	Source  string
	Path    string
	Files   int
	Parsed  int
	Created int
	Skipped int
	Failed  int
	Pruned  int
	Errors  []error
}

// Importer reconciles markdown sources with remote decks.
type Importer struct {
	cards    CardAPI
	ledger   Ledger
	reposDir string
	progress io.Writer
	logger   *slog.Logger
}

// New creates an Importer.
func New(cards CardAPI, ledger Ledger, opts Options) *Importer {
	if opts.ReposDir == "" {
		opts.ReposDir = "repos"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Importer{
		cards:    cards,
		ledger:   ledger,
		reposDir: opts.ReposDir,
		progress: opts.Progress,
		logger:   opts.Logger,
	}
}

// Import parses every .md file under source and creates the cards the deck
// does not already have. A card is identified by the hash of its content, so
// re-running an import is safe. With prune set, cards created by an earlier
// import of the same source whose markdown has since been removed are deleted
// from the deck.
func (im *Importer) Import(ctx context.Context, deckID, source string, prune bool) (*Report, error) {
	report := &Report{DeckID: deckID, Source: source}

	path, err := im.resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	report.Path = path

	src, err := im.ledger.UpsertSource(ctx, deckID, source)
	if err != nil {
		return nil, err
	}
	sourceID := src.ID

	existing, err := im.cards.ListCards(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards in deck %s: %w", deckID, err)
	}
	onServer := make(map[string]domain.Card, len(existing))
	for _, card := range existing {
		onServer[knol.Hash(card)] = card
	}

	found := make(map[string]bool)
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		report.Files++
		fileCards, parseErr := parser.ParseFile(p)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", p, parseErr))
		}
		for _, card := range fileCards {
			report.Parsed++
			card.Hash = knol.Hash(card)
			if found[card.Hash] {
				report.Skipped++
				continue
			}
			found[card.Hash] = true

			if serverCard, ok := onServer[card.Hash]; ok {
				report.Skipped++
				im.adopt(ctx, report, deckID, serverCard, card, sourceID)
				continue
			}

			created, createErr := im.cards.CreateCard(ctx, deckID, api.CardInput{
				Front: card.Front,
				Back:  card.Back,
				Hint:  card.Hint,
				Tags:  card.Tags,
			})
			if createErr != nil {
				report.Failed++
				report.Errors = append(report.Errors, fmt.Errorf("creating card %q from %s: %w", card.Front, p, createErr))
				if errors.Is(createErr, api.ErrUnauthenticated) {
					return createErr
				}
				continue
			}
			im.logger.Debug("created card", "hash", card.Hash, "card_id", created.ID, "file", p)
			report.Created++
			im.record(ctx, report, deckID, card.Hash, created.ID, card.Front, sourceID)
		}
		return nil
	})
	if walkErr != nil {
		return report, fmt.Errorf("failed to walk %s: %w", path, walkErr)
	}

	if prune {
		im.prune(ctx, report, src.ID, found)
	}

	if err := im.ledger.UpdateSourceLastScanned(ctx, src.ID); err != nil {
		im.logger.Warn("failed to update last scanned for source", "source_id", src.ID, "error", err)
	}

	im.logger.Info("import complete",
		"deck_id", deckID,
		"path", path,
		"parsed_cards", report.Parsed,
		"created", report.Created,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"pruned", report.Pruned,
		"errors", len(report.Errors),
	)
	return report, nil
}

// ImportAll re-imports every source imported before, in the order they were added.
// A failing source is reported and the rest still run.
func (im *Importer) ImportAll(ctx context.Context, prune bool) ([]*Report, error) {
	sources, err := im.ledger.GetAllSources(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		im.logger.Info("no sources configured")
		return nil, nil
	}

	var reports []*Report
	var errs []error
	for _, src := range sources {
		im.logger.Info("syncing source", "id", src.ID, "deck_id", src.DeckID, "path", src.Path)
		r, err := im.Import(ctx, src.DeckID, src.Path, prune)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.Path, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}

func (im *Importer) resolve(ctx context.Context, source string) (string, error) {
	if gitsource.IsRemote(source) {
		local, err := gitsource.LocalPath(im.reposDir, source)
		if err != nil {
			return "", err
		}
		if err := gitsource.Sync(ctx, source, local, im.progress); err != nil {
			return "", err
		}
		return local, nil
	}

	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("failed to read source %s: %w", source, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source %s is not a directory", source)
	}
	return source, nil
}

// adopt records an existing server card for sourceID, but only when an earlier
// import created it. Cards authored on the server stay unrecorded so pruning
// never touches them.
func (im *Importer) adopt(ctx context.Context, report *Report, deckID string, serverCard, card domain.Card, sourceID int64) {
	owned, err := im.ledger.FindImportedCard(ctx, deckID, card.Hash)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return
	}
	if owned == nil {
		im.logger.Debug("card exists on server but was not imported, leaving it alone",
			"hash", card.Hash, "card_id", serverCard.ID)
		return
	}
	im.record(ctx, report, deckID, card.Hash, serverCard.ID, card.Front, sourceID)
}

func (im *Importer) record(ctx context.Context, report *Report, deckID, hash, cardID, front string, sourceID int64) {
	err := im.ledger.InsertImportedCard(ctx, storage.ImportedCard{
		DeckID:   deckID,
		Hash:     hash,
		CardID:   cardID,
		Front:    front,
		SourceID: sourceID,
	})
	if err != nil {
		report.Errors = append(report.Errors, err)
	}
}

// prune forgets the source's cards that are no longer in its markdown. A card
// is deleted from the deck only once no other source lists it.
func (im *Importer) prune(ctx context.Context, report *Report, sourceID int64, found map[string]bool) {
	imported, err := im.ledger.GetImportedCardsBySourceID(ctx, sourceID)
	if err != nil {
		report.Errors = append(report.Errors, err)
		return
	}
	for _, c := range imported {
		if found[c.Hash] {
			continue
		}
		if err := im.ledger.DeleteImportedCard(ctx, c.DeckID, c.Hash, sourceID); err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}

		other, err := im.ledger.FindImportedCard(ctx, c.DeckID, c.Hash)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		if other != nil {
			im.logger.Info("card still listed by another source, keeping", "hash", c.Hash,
				"card_id", c.CardID, "source_id", other.SourceID)
			continue
		}

		im.logger.Info("orphaned card, deleting", "hash", c.Hash, "card_id", c.CardID)
		if err := im.cards.DeleteCard(ctx, c.CardID); err != nil && !api.IsNotFound(err) {
			report.Errors = append(report.Errors, fmt.Errorf("deleting card %s: %w", c.CardID, err))
			// Keep the record so the next prune retries the delete.
			if err := im.ledger.InsertImportedCard(ctx, c); err != nil {
				report.Errors = append(report.Errors, err)
			}
			continue
		}
		report.Pruned++
	}
}
