package match

import "sync"

// PublishMatch receives the recommendations of every matching round.
type PublishMatch interface {
	PublishMatches(...*BidOfferMatch)
}

type MemoryPublishMatch struct {
	mu      sync.RWMutex
	matches []*BidOfferMatch
}

func NewMemoryPublishMatch() *MemoryPublishMatch {
	return &MemoryPublishMatch{
		matches: make([]*BidOfferMatch, 0),
	}
}

func (m *MemoryPublishMatch) PublishMatches(matches ...*BidOfferMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches = append(m.matches, matches...)
}

func (m *MemoryPublishMatch) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}

func (m *MemoryPublishMatch) Get(index int) *BidOfferMatch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.matches[index]
}

// Matches returns a copy of everything published so far.
func (m *MemoryPublishMatch) Matches() []*BidOfferMatch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*BidOfferMatch, len(m.matches))
	copy(result, m.matches)
	return result
}

type DiscardPublishMatch struct {
}

func NewDiscardPublishMatch() *DiscardPublishMatch {
	return &DiscardPublishMatch{}
}

func (p *DiscardPublishMatch) PublishMatches(matches ...*BidOfferMatch) {}
