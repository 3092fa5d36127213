// command faced is the Face MCU's firmware core: it owns the animation
// state machine, the rasterizer, the conversation border, and the host
// link, each running as its own goroutine sharing state only through
// the lock-free primitives in package face, mirroring reflexd's
// goroutine-per-loop structure on an independent firmware image.
package main

import (
	"fmt"
	"image"
	"log"
	"os"
	"time"

	"github.com/0mdb/robot-buddy-sub000/driver/buttons"
	"github.com/0mdb/robot-buddy-sub000/face"
	"github.com/0mdb/robot-buddy-sub000/image/rgb565"
	"github.com/0mdb/robot-buddy-sub000/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v", err)
		os.Exit(2)
	}
}

func run() error {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
	log.Println("faced: starting")

	plat, err := Init()
	if err != nil {
		return err
	}
	defer plat.Close()

	port, err := transport.OpenSerial("")
	if err != nil {
		return fmt.Errorf("host link: %w", err)
	}
	defer port.Close()
	codec := transport.NewCodec(port, nowMicros)

	var cmds face.CommandChannels
	border := face.NewBorder()
	animator := face.NewAnimator()
	fb := rgb565.New(image.Rectangle{Max: screenDims})
	renderer := face.NewRenderer(fb)

	touchBuf := face.NewDoubleBuffer[face.TouchSample]()
	stop := make(chan struct{})

	go hostLink(codec, &cmds, stop)
	go telemetryLoop(codec, animator.State, border, stop)
	if plat.Touch != nil {
		poller := face.NewTouchPoller(plat.Touch, touchBuf, nowMicros)
		go poller.Run(10*time.Millisecond, stop)
	}
	if plat.Buttons != nil {
		go buttonLoop(codec, plat.Buttons, border, stop)
	}

	renderLoop(plat, animator, renderer, border, &cmds, touchBuf, codec)
	return nil
}

// renderLoop runs forever at face.FrameInterval, executing one
// animation tick, rasterizing the result, and blitting the dirty
// rectangle to the panel (spec §4.6, §4.7).
func renderLoop(plat *Platform, animator *face.Animator, renderer *face.Renderer, border *face.Border, cmds *face.CommandChannels, touchBuf *face.DoubleBuffer[face.TouchSample], codec *transport.Codec) {
	t := time.NewTicker(face.FrameInterval)
	defer t.Stop()
	last := time.Now()

	for range t.C {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		nowUs := nowMicros()

		touch := touchBuf.Load()
		animator.SetTouch(touch.Point)

		zone := face.ClassifyZone(touch.Point, screenDims)
		suppressed := animator.State.System.Mode != face.SystemNone
		for _, ev := range border.HandleTouch(touch.Pressed, zone, suppressed) {
			btn := face.ButtonPTT
			if ev.Zone == face.HitAction {
				btn = face.ButtonAction
			}
			if err := codec.WriteRecord(face.TypeButtonEvent, face.EncodeButtonEvent(btn, ev.Event, 0)); err != nil {
				log.Printf("faced: button telemetry: %v", err)
			}
		}

		border.Tick(nowUs, dt, animator.State.TalkingEnergy)
		animator.Tick(cmds, border, nowUs, dt)

		dirty := renderer.Render(animator.State, border)
		if plat.Panel != nil && !dirty.Empty() {
			if err := plat.Panel.Draw(renderer.Framebuffer(), dirty); err != nil {
				log.Printf("faced: panel draw: %v", err)
			}
		}
	}
}

// telemetryLoop periodically pushes a FACE_STATUS record to the host,
// echoing the codec's currently negotiated wire version (spec §6.3).
func telemetryLoop(codec *transport.Codec, s *face.FaceState, border *face.Border, stop <-chan struct{}) {
	const period = 50 * time.Millisecond
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		ver := codec.Version()
		payload := face.EncodeFaceStatus(ver, s.Mood, s.System.Mode, border.State, s.Flags(), s.Talking, 0, s.NowUs)
		if err := codec.WriteRecord(face.TypeFaceStatus, payload); err != nil {
			log.Printf("faced: telemetry write: %v", err)
		}
	}
}

// buttonLoop forwards debounced discrete-button edges as BUTTON_EVENT
// telemetry, matching the touch-zone corner buttons' wire shape.
func buttonLoop(codec *transport.Codec, events <-chan buttons.Event, border *face.Border, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev := <-events:
			btn := face.ButtonPTT
			if ev.Button == buttons.Action {
				btn = face.ButtonAction
			}
			evt := face.ButtonRelease
			if ev.Pressed {
				evt = face.ButtonPress
			}
			if err := codec.WriteRecord(face.TypeButtonEvent, face.EncodeButtonEvent(btn, evt, 0)); err != nil {
				log.Printf("faced: button telemetry: %v", err)
			}
		}
	}
}

// hostLink owns the codec's read side: it decodes every incoming
// record, answers shared records inline, and fans out Face-specific
// commands into their CommandChannels (spec §6.2).
func hostLink(codec *transport.Codec, cmds *face.CommandChannels, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		rec, err := codec.ReadRecord()
		if err != nil {
			continue
		}
		if codec.HandleShared(rec) {
			continue
		}
		switch rec.Type {
		case face.TypeSetState:
			st, ok := face.DecodeSetState(rec.Payload)
			if !ok {
				continue
			}
			cmds.State.Publish(st, nowMicros())
		case face.TypeGesture:
			g, ok := face.DecodeGesture(rec.Payload)
			if !ok {
				continue
			}
			g.TsUs = nowMicros()
			cmds.Gestures.Push(g)
		case face.TypeSetSystem:
			sc, ok := face.DecodeSetSystem(rec.Payload)
			if !ok {
				continue
			}
			cmds.System.Publish(sc, nowMicros())
		case face.TypeSetTalking:
			tc, ok := face.DecodeSetTalking(rec.Payload)
			if !ok {
				continue
			}
			cmds.Talking.Publish(tc, nowMicros())
		case face.TypeSetFlags:
			fc, ok := face.DecodeSetFlags(rec.Payload)
			if !ok {
				continue
			}
			cmds.Flags.Publish(fc, nowMicros())
		case face.TypeSetConvState:
			cs, ok := face.DecodeSetConvState(rec.Payload)
			if !ok {
				continue
			}
			cmds.ConvState.Publish(cs, nowMicros())
		}
	}
}
