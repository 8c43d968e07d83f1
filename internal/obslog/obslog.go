// Package obslog gives every package in this module a consistently tagged
// logrus logger instead of each one building its own ad hoc setup.
package obslog

import "github.com/sirupsen/logrus"

// For returns a logger entry tagged with the given component name.
func For(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}
