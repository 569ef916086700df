package launchpad

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Admin returns the current platform admin.
func (l *Launchpad) Admin() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Admin
}

// Paused reports whether the pause switch is set.
func (l *Launchpad) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Paused
}

// ChangeAdmin hands the admin role to newAdmin in one step.
func (l *Launchpad) ChangeAdmin(ctx context.Context, caller, newAdmin common.Address) error {
	const op = "changeAdmin"
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Admin {
		return reject(op, KindNotAdmin, "caller", caller.Hex())
	}
	if l.state.Paused {
		return reject(op, KindPaused)
	}
	if newAdmin == (common.Address{}) {
		return reject(op, KindAddressZero, "newAdmin", newAdmin.Hex())
	}
	if newAdmin == l.state.Admin {
		return reject(op, KindOldAdmin, "newAdmin", newAdmin.Hex())
	}

	st := l.state
	st.Admin = newAdmin
	return l.commit(ctx, st, nil, Event{
		Action:  ActionChangeAdmin,
		Actor:   caller,
		Details: "new_admin=" + newAdmin.Hex(),
	}, nil)
}

// Pause sets the pause switch.
func (l *Launchpad) Pause(ctx context.Context, caller common.Address) error {
	return l.setPaused(ctx, "pause", caller, true)
}

// Unpause clears the pause switch.
func (l *Launchpad) Unpause(ctx context.Context, caller common.Address) error {
	return l.setPaused(ctx, "unpause", caller, false)
}

func (l *Launchpad) setPaused(ctx context.Context, op string, caller common.Address, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.state.Admin {
		return reject(op, KindNotAdmin, "caller", caller.Hex())
	}
	if l.state.Paused == paused {
		if paused {
			return reject(op, KindPaused)
		}
		return reject(op, KindNotPaused)
	}

	st := l.state
	st.Paused = paused
	action := ActionUnpause
	if paused {
		action = ActionPause
	}
	return l.commit(ctx, st, nil, Event{Action: action, Actor: caller}, nil)
}
