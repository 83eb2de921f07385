// Package storage writes downloaded assets and state files to disk.
//
// Assets live at <root>/<group>/<subgroup>/<filename>. Every write goes to a
// synced temporary file that is renamed into place, so readers and later
// runs only ever see complete files. An asset already on disk is never
// fetched again.
package storage
