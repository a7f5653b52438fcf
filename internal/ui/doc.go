// Package ui provides the terminal advice card for slip.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. It never fetches advice itself: every
// gesture goes to a Controller, and the card is redrawn from the
// Controller's Snapshot, polled on a short refresh tick. The interface has a
// single card with three bodies:
//
//   - Skeleton: shown while the first advice is loading
//   - Error: shown when the first load failed, with a retry hint
//   - Advice: the advice number, the quote, and the dice button
//
// # Package Structure
//
//   - model.go: Model, Update loop, commands and the Run function
//   - view.go: card rendering and error classification
//   - keys.go: key bindings and help
//   - theme.go: Nightfox, Kanagawa and Slate palettes
//
// # Key Features
//
//   - New advice on space, enter or n; ignored while the card is busy
//   - Jump to an advice id with "#"
//   - Retry after a failure with "r"; earlier advice stays on screen
//   - "T" cycles themes, "?" toggles the full help
package ui
