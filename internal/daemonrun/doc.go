// Package daemonrun boots the long-lived bigrack daemon process. It owns
// the startup announcement, the single start attempt, and the translation
// of startup failures into a non-zero process exit.
package daemonrun
