// Package lookup resolves free-text school queries against the NEIS open
// API and fetches meal menus for a resolved school.
package lookup
