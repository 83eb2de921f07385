// Package ui renders run progress for the terminal: per-item status lines,
// a lipgloss summary box at the end of each stage and optional desktop
// notifications.
package ui
