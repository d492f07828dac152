package booking

import (
	"fmt"

	"fixam/internal/models"
)

// Action is a closed set of booking lifecycle operations.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionConfirm  Action = "confirm"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
)

type actorRole int

const (
	actorClient actorRole = iota
	actorArtisan
	actorEither
)

// transition is one row of the lifecycle table: which statuses the action
// applies from, where it lands, who may trigger it, and what the
// counterparty is told.
type transition struct {
	from           []string
	to             string
	actor          actorRole
	title          string
	message        func(b *models.Booking) string
	actionRequired bool
}

var transitions = map[Action]transition{
	ActionAccept: {
		from:  []string{models.StatusPending},
		to:    models.StatusConfirmed,
		actor: actorArtisan,
		title: "Booking Confirmed",
		message: func(b *models.Booking) string {
			return fmt.Sprintf("Booking confirmed for %s", b.Service)
		},
	},
	ActionDecline: {
		from:  []string{models.StatusPending},
		to:    models.StatusDeclined,
		actor: actorArtisan,
		title: "Booking Declined",
		message: func(b *models.Booking) string {
			return fmt.Sprintf("Booking declined for %s", b.Service)
		},
	},
	ActionStart: {
		from:  []string{models.StatusConfirmed},
		to:    models.StatusInProgress,
		actor: actorArtisan,
		title: "Job Started",
		message: func(b *models.Booking) string {
			return fmt.Sprintf("Job started on %s", b.Service)
		},
	},
	ActionComplete: {
		from:  []string{models.StatusInProgress},
		to:    models.StatusPendingConfirmation,
		actor: actorArtisan,
		title: "Confirm Completion",
		message: func(b *models.Booking) string {
			return fmt.Sprintf("Please review and confirm completion of %s", b.Service)
		},
		actionRequired: true,
	},
	ActionConfirm: {
		from:  []string{models.StatusPendingConfirmation},
		to:    models.StatusCompleted,
		actor: actorClient,
		title: "Job Confirmed",
		message: func(b *models.Booking) string {
			return fmt.Sprintf("Job confirmed for %s", b.Service)
		},
	},
	ActionReject: {
		from:  []string{models.StatusPendingConfirmation},
		to:    models.StatusInProgress,
		actor: actorClient,
		title: "Completion Rejected",
		message: func(b *models.Booking) string {
			return fmt.Sprintf("Completion rejected, more work requested on %s", b.Service)
		},
		actionRequired: true,
	},
	ActionCancel: {
		from:  []string{models.StatusPending, models.StatusConfirmed, models.StatusInProgress},
		to:    models.StatusCancelled,
		actor: actorEither,
		title: "Booking Cancelled",
		message: func(b *models.Booking) string {
			return fmt.Sprintf("Booking cancelled for %s", b.Service)
		},
	},
}

// ParseAction maps a route parameter to an Action.
func ParseAction(raw string) (Action, bool) {
	action := Action(raw)
	_, ok := transitions[action]
	return action, ok
}

func (t transition) allowsFrom(status string) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

// authorized reports whether the actor may trigger this transition on b.
func (t transition) authorized(b *models.Booking, actorID int64) bool {
	switch t.actor {
	case actorClient:
		return actorID == b.ClientID
	case actorArtisan:
		return actorID == b.ArtisanID
	case actorEither:
		return actorID == b.ClientID || actorID == b.ArtisanID
	}
	return false
}

// recipient returns the party to notify: always the actor's counterparty.
func (t transition) recipient(b *models.Booking, actorID int64) int64 {
	if actorID == b.ClientID {
		return b.ArtisanID
	}
	return b.ClientID
}
