// Package patches holds the instrumentation candidates for the game image.
//
// Each candidate names one host method and a rewrite that splices event
// dispatch into its body. Candidates that raise deniable events verify the
// constructor correlation at their site, so a changed host signature fails
// the candidate instead of silently loading the wrong argument.
//
// The embedded game image (game.yaml) is a small model of the host used by
// the CLI and by tests. Its bodies follow the shape of the real methods
// closely enough for the anchors (nth ret, damage constant) to hold.
package patches
