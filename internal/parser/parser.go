package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/knolboard/internal/domain"
)

const (
	frontPrefix = "Q:"
	backPrefix  = "A:"
	hintPrefix  = "C:"
	tagsPrefix  = "T:"
	separator   = "---"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingHint
)

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards.
//
// A card starts at a "Q:" line. "A:" and "C:" lines start the back and hint,
// and each of the three may continue over several lines. A "T:" line holds
// comma separated tags. A "---" line or the next "Q:" ends the card. Cards
// missing a front or a back are dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var currentCard domain.Card
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(currentBlock, "\n"), "\n")
		switch currentState {
		case readingFront:
			currentCard.Front = content
		case readingBack:
			currentCard.Back = content
		case readingHint:
			currentCard.Hint = content
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Front != "" && currentCard.Back != "" {
			cards = append(cards, currentCard)
		}
		currentCard = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == separator:
			finishCard()

		case strings.HasPrefix(line, frontPrefix):
			if currentState != seeking { // A new front always starts a new card
				finishCard()
			}
			currentState = readingFront
			currentBlock = append(currentBlock, content(line, frontPrefix))

		case strings.HasPrefix(line, backPrefix) && currentState != seeking:
			flushBlock()
			currentState = readingBack
			currentBlock = append(currentBlock, content(line, backPrefix))

		case strings.HasPrefix(line, hintPrefix) && currentState != seeking:
			flushBlock()
			currentState = readingHint
			currentBlock = append(currentBlock, content(line, hintPrefix))

		case strings.HasPrefix(line, tagsPrefix) && currentState != seeking:
			flushBlock()
			currentCard.Tags = append(currentCard.Tags, splitTags(content(line, tagsPrefix))...)

		case currentState != seeking:
			currentBlock = append(currentBlock, line)
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func content(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
