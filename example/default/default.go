package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apogee-mp/apogee"
	"github.com/apogee-mp/apogee/game"
	"github.com/apogee-mp/apogee/gravity"
	"github.com/apogee-mp/apogee/loopback"
	"github.com/apogee-mp/apogee/physics"
	"github.com/apogee-mp/apogee/settings"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// The following program runs a loopback server and a predicted client against
// it: the client walks toward a moon until its sphere of influence captures
// the actor, printing reconciliation stats along the way.
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	if os.Getenv("PPROF_ENABLED") != "" {
		// set configurations before calling `statsview.New()` method
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr("localhost:8080"))

		mgr := statsview.New()
		go mgr.Start()
	}

	planet := gravity.NewField("kerra", mgl32.Vec3{}, 25, 400)
	moon := gravity.NewField("ilo", mgl32.Vec3{320, 0, 0}, 4, 60)
	moon.Velocity = mgl32.Vec3{0, 0, 2}
	if err := planet.AttachChild(moon); err != nil {
		panic(err)
	}
	fields, err := gravity.NewRegistry(planet)
	if err != nil {
		panic(err)
	}

	// A flat landing pad under the spawn point so the actor has ground to
	// stand on.
	world := &physics.StaticWorld{
		Boxes: []cube.BBox{cube.Box(-100, 198, -100, 100, 200, 100)},
	}

	srv, err := loopback.Listen("127.0.0.1:0", fields, world, mgl32.Vec3{0, 201, 0}, log)
	if err != nil {
		panic(err)
	}
	defer srv.Close()
	log.Infof("loopback server on %v", srv.Addr())

	conf := settings.Default()
	conf.Network.Address = srv.Addr()
	client := apogee.NewClient(apogee.Config{Settings: conf, Fields: fields, Caster: world, Log: log})
	if err := client.Connect(); err != nil {
		panic(err)
	}
	defer client.Close("example finished")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(game.TickDuration)
	defer ticker.Stop()

	report := time.NewTicker(2 * time.Second)
	defer report.Stop()

	for {
		select {
		case <-ticker.C:
			client.Tick(apogee.Input{MoveForward: 1, Run: true})
		case <-report.C:
			local := client.Local()
			if local == nil {
				continue
			}
			stats := client.Stats()
			fmt.Printf("pos=%v field=%v corrections=%d meanErr=%.4f maxErr=%.4f\n",
				local.Position, local.Field.Name(), stats.Corrections, stats.MeanError(), stats.MaxError())
		case <-sig:
			return
		}
	}
}
