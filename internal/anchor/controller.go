// Package anchor maintains the single "live" message per user that the
// wizard edits in place, instead of flooding the chat with one message
// per question.
package anchor

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kirill3224/privacy-sentry/internal/gateway"
)

// Anchors records which message is the current anchor for a user. The session
// store implements this, so clearing a session also forgets its anchor.
type Anchors interface {
	Anchor(userID int64) (int, bool)
	SetAnchor(userID int64, messageID int)
	ClearAnchor(userID int64)
}

type Controller struct {
	gw      gateway.Gateway
	anchors Anchors
}

func New(gw gateway.Gateway, anchors Anchors) *Controller {
	return &Controller{gw: gw, anchors: anchors}
}

// Present shows text+buttons as the user's anchor: edits the existing anchor
// in place, or sends a new message when none exists or forceNew is set.
// "Not modified" is a successful no-op. "Not found" falls back to sending a
// fresh message. Any other edit failure is logged and returned.
func (c *Controller) Present(ctx context.Context, userID int64, text string, buttons [][]gateway.Button, forceNew bool) error {
	id, ok := c.anchors.Anchor(userID)
	if ok && forceNew {
		if err := c.gw.DeleteMessage(ctx, userID, id); err != nil && !errors.Is(err, gateway.ErrNotFound) {
			log.Printf("anchor: delete of replaced anchor %d failed for user %d: %v", id, userID, err)
		}
		c.anchors.ClearAnchor(userID)
		ok = false
	}

	if !ok {
		return c.sendNew(ctx, userID, text, buttons)
	}

	err := c.gw.EditMessage(ctx, userID, id, text, buttons)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gateway.ErrNotModified):
		return nil
	case errors.Is(err, gateway.ErrNotFound):
		log.Printf("anchor: message %d gone for user %d, sending a new one", id, userID)
		c.anchors.ClearAnchor(userID)
		return c.sendNew(ctx, userID, text, buttons)
	default:
		log.Printf("anchor: edit of message %d failed for user %d: %v", id, userID, err)
		return err
	}
}

func (c *Controller) sendNew(ctx context.Context, userID int64, text string, buttons [][]gateway.Button) error {
	id, err := c.gw.SendMessage(ctx, userID, text, buttons)
	if err != nil {
		return fmt.Errorf("anchor: send: %w", err)
	}
	c.anchors.SetAnchor(userID, id)
	return nil
}

// Dismiss deletes the anchor message and forgets its id. A missing message
// is logged, never escalated.
func (c *Controller) Dismiss(ctx context.Context, userID int64) {
	id, ok := c.anchors.Anchor(userID)
	if !ok {
		return
	}
	if err := c.gw.DeleteMessage(ctx, userID, id); err != nil {
		log.Printf("anchor: dismiss of message %d failed for user %d: %v", id, userID, err)
	}
	c.anchors.ClearAnchor(userID)
}
