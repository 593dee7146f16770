// Package schedule runs validation on a cron schedule using
// github.com/robfig/cron/v3.
package schedule
