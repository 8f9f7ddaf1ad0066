// Package reaction provides waiting for user reactions on bot messages
package reaction

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const variationSelector = "\ufe0f"

type key struct {
	messageID string
	userID    string
}

// Waiter matches incoming reactions against expectations keyed by message and user
type Waiter struct {
	pending map[key][]*Pending
	m       sync.Mutex
}

// Pending is a registered expectation of a reaction
type Pending struct {
	waiter *Waiter
	ch     chan string
	key    key
	emojis []string
}

// NewWaiter provides Waiter instance
func NewWaiter() *Waiter {
	return &Waiter{
		pending: make(map[key][]*Pending),
	}
}

func normalize(emoji string) string {
	return strings.ReplaceAll(emoji, variationSelector, "")
}

// Expect registers expectation of one of given emojis from user on message. Registration should
// happen before reactions are offered, so that no reaction is missed.
func (w *Waiter) Expect(messageID, userID string, emojis ...string) *Pending {
	p := &Pending{
		waiter: w,
		ch:     make(chan string, 1),
		key:    key{messageID: messageID, userID: userID},
	}

	for _, e := range emojis {
		p.emojis = append(p.emojis, normalize(e))
	}

	w.m.Lock()
	w.pending[p.key] = append(w.pending[p.key], p)
	w.m.Unlock()

	return p
}

// Dispatch delivers reaction to matching expectations, reporting if any matched
func (w *Waiter) Dispatch(messageID, userID, emoji string) (matched bool) {
	k := key{messageID: messageID, userID: userID}
	emoji = normalize(emoji)

	w.m.Lock()
	defer w.m.Unlock()

	ps := w.pending[k]
	rest := ps[:0]

	for _, p := range ps {
		if p.accepts(emoji) {
			p.ch <- emoji
			matched = true

			continue
		}

		rest = append(rest, p)
	}

	if len(rest) == 0 {
		delete(w.pending, k)
	} else {
		w.pending[k] = rest
	}

	return
}

// Len returns number of outstanding expectations
func (w *Waiter) Len() (n int) {
	w.m.Lock()
	defer w.m.Unlock()

	for _, ps := range w.pending {
		n += len(ps)
	}

	return
}

// HandlerReactionAdd feeds discord reaction events into waiter
func (w *Waiter) HandlerReactionAdd(_ *discordgo.Session, messageReactionAdd *discordgo.MessageReactionAdd) {
	w.Dispatch(messageReactionAdd.MessageID, messageReactionAdd.UserID, messageReactionAdd.Emoji.APIName())
}

func (p *Pending) accepts(emoji string) bool {
	for _, e := range p.emojis {
		if e == emoji {
			return true
		}
	}

	return false
}

// Cancel drops expectation
func (p *Pending) Cancel() {
	w := p.waiter

	w.m.Lock()
	defer w.m.Unlock()

	ps := w.pending[p.key]

	for i, c := range ps {
		if c == p {
			ps = append(ps[:i], ps[i+1:]...)
			break
		}
	}

	if len(ps) == 0 {
		delete(w.pending, p.key)
	} else {
		w.pending[p.key] = ps
	}
}

// Wait blocks until expected reaction arrives or context is done. Returned emoji has variation
// selectors stripped.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case emoji := <-p.ch:
		return emoji, nil
	case <-ctx.Done():
		p.Cancel()

		select {
		case emoji := <-p.ch:
			return emoji, nil
		default:
		}

		return "", ctx.Err()
	}
}
