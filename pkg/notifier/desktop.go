package notifier

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/foreman-dev/foreman/pkg/logger"
	"github.com/foreman-dev/foreman/pkg/types"
)

// Desktop raises a system notification when a build finishes or deploys
type Desktop struct {
	enabled bool
	sound   bool
	log     logger.Logger

	notify func(title, message, icon string) error
	beep   func(freq float64, duration int) error
}

// NewDesktop creates a desktop sink backed by beeep
func NewDesktop(enabled, sound bool, log logger.Logger) *Desktop {
	return &Desktop{
		enabled: enabled,
		sound:   sound,
		log:     log.WithComponent("desktop"),
		notify:  beeep.Notify,
		beep:    beeep.Beep,
	}
}

// Publish implements Publisher
func (d *Desktop) Publish(event types.Event) {
	if !d.enabled {
		return
	}
	title, message, ok := desktopMessage(event)
	if !ok {
		return
	}

	if err := d.notify(title, message, ""); err != nil {
		d.log.Debug("failed to send notification", logger.WithError(err))
	}
	if d.sound {
		if err := d.beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			d.log.Debug("failed to play sound", logger.WithError(err))
		}
	}
}

func desktopMessage(event types.Event) (title, message string, ok bool) {
	rec, isBuild := event.Data.(*types.BuildRecord)
	if !isBuild {
		return "", "", false
	}

	switch event.Type {
	case types.EventBuildCompleted:
		return "✅ Build ready for approval", fmt.Sprintf("%s finished all phases", rec.Name), true
	case types.EventAppDeployed:
		return "🚀 App deployed", fmt.Sprintf("%s is live at %s", rec.Name, rec.DeploymentURL), true
	}
	return "", "", false
}
