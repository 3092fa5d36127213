package face

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"

	"github.com/0mdb/robot-buddy-sub000/image/rgb565"
)

// background is the face's resting backdrop color.
var background = color.RGBA{R: 0x10, G: 0x12, B: 0x18, A: 0xff}

// Renderer rasterizes one FaceState into an RGB565 framebuffer (spec
// §4.7). It owns a downsampled shadow copy of the previous frame for
// the afterglow effect (spec §4.9).
type Renderer struct {
	fb   *rgb565.Image
	dims image.Point

	shadow      *rgb565.Image
	shadowScale int

	rng   *rand.Rand
	dirty *dirtyTracker
}

const afterglowDownsample = 4

// NewRenderer allocates a Renderer targeting fb.
func NewRenderer(fb *rgb565.Image) *Renderer {
	dims := fb.Bounds().Size()
	sw, sh := dims.X/afterglowDownsample, dims.Y/afterglowDownsample
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return &Renderer{
		fb:          fb,
		dims:        dims,
		shadow:      rgb565.New(image.Rect(0, 0, sw, sh)),
		shadowScale: afterglowDownsample,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Framebuffer returns the backing RGB565 buffer Render draws into, for
// the caller to hand (along with the dirty rectangle) to the panel
// driver.
func (r *Renderer) Framebuffer() *rgb565.Image { return r.fb }

// Render draws one frame for s and returns the dirty rectangle the
// caller must hand to the panel driver (spec §4.7 step 4, §4.9).
func (r *Renderer) Render(s *FaceState, border *Border) image.Rectangle {
	r.dirty = newDirtyTracker(r.fb.Bounds())
	r.clear(background)

	if s.calibrationFlags&FlagCalibration != 0 {
		r.drawCalibration(s)
		return r.dirty.Rect()
	}

	r.drawEye(&s.EyeL, s, true)
	r.drawEye(&s.EyeR, s, false)
	if s.ShowMouth {
		r.drawMouth(s)
	}

	if s.Timers.Gestures[GestureRage].Active {
		r.dirty.markFull()
		r.drawFire(s)
	}
	if s.Effects.Sparkle {
		r.dirty.markFull()
		r.drawSparkles(s)
	}
	if s.Effects.Afterglow {
		r.dirty.markFull()
		r.applyAfterglow()
	}
	r.captureShadow()

	if s.System.Mode != SystemNone {
		r.dirty.markFull()
		r.drawSystemOverlay(s)
	} else if border != nil {
		r.dirty.mark(borderEdgeStrips(r.dims, r.dims.Y/24))
		r.drawBorder(border, s.NowUs)
	}

	r.dirty.mark(faceBand(r.dims))
	return r.dirty.Rect()
}

func (r *Renderer) clear(c color.RGBA) {
	b := r.fb.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r.fb.Set(x, y, c)
		}
	}
}

func (r *Renderer) drawCalibration(s *FaceState) {
	r.dirty.markFull()
	grid := color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}
	const step = 20
	for x := 0; x < r.dims.X; x += step {
		vLine(r.fb, x, 0, r.dims.Y, grid)
	}
	for y := 0; y < r.dims.Y; y += step {
		hLine(r.fb, 0, r.dims.X, y, grid)
	}
	cross := color.RGBA{R: 0xff, G: 0x20, B: 0x20, A: 0xff}
	cx, cy := int(s.calibrationTouch.X), int(s.calibrationTouch.Y)
	hLine(r.fb, cx-10, cx+10, cy, cross)
	vLine(r.fb, cx, cy-10, cy+10, cross)
}

func hLine(fb *rgb565.Image, x0, x1 int, y int, c color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	b := fb.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	for x := x0; x <= x1; x++ {
		if x < b.Min.X || x >= b.Max.X {
			continue
		}
		fb.Set(x, y, c)
	}
}

func vLine(fb *rgb565.Image, x int, y0, y1 int, c color.RGBA) {
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	b := fb.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := y0; y <= y1; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		fb.Set(x, y, c)
	}
}

// blendPixel alpha-composites c over the framebuffer pixel at (x,y),
// channel-wise (spec §4.7: "Alpha in [0,1] is composited against the
// existing framebuffer pixel, channel-wise").
func blendPixel(fb *rgb565.Image, x, y int, c color.RGBA, alpha float32) {
	if alpha <= 0 || !(image.Point{x, y}).In(fb.Bounds()) {
		return
	}
	if alpha >= 1 {
		fb.Set(x, y, c)
		return
	}
	br, bgc, bb, _ := fb.At(x, y).RGBA()
	lerp := func(fg uint8, bg uint32) uint8 {
		return uint8(float32(fg)*alpha + float32(bg>>8)*(1-alpha))
	}
	fb.Set(x, y, color.RGBA{
		R: lerp(c.R, br), G: lerp(c.G, bgc), B: lerp(c.B, bb), A: 0xff,
	})
}

func scaleColor(c color.RGBA, mul float32) color.RGBA {
	scale := func(v uint8) uint8 {
		f := float32(v) * mul
		if f < 0 {
			return 0
		}
		if f > 255 {
			return 255
		}
		return uint8(f)
	}
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: 0xff}
}

// fillPath rasterizes a closed polygon with anti-aliased coverage (spec
// §4.7 "Rendering primitives"). Grounded on the teacher's engrave
// Rasterizer: a fresh scanner+filler per shape, matching
// seedhammer.com/engrave's one-Rasterizer-per-path lifecycle.
func fillPath(fb *rgb565.Image, pts []fixed.Point26_6, c color.RGBA) {
	if len(pts) < 3 {
		return
	}
	b := fb.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), fb, b)
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
	filler.SetColor(c)
	filler.Start(pts[0])
	for _, p := range pts[1:] {
		filler.Line(p)
	}
	filler.Stop(true)
	filler.Draw()
}

// strokePath draws a thick polyline (used for the mouth's parabola).
func strokePath(fb *rgb565.Image, pts []fixed.Point26_6, width fixed.Int26_6, c color.RGBA) {
	if len(pts) < 2 {
		return
	}
	b := fb.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), fb, b)
	dasher := rasterx.NewDasher(b.Dx(), b.Dy(), scanner)
	dasher.SetStroke(width, 0, rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.ArcClip, nil, 0)
	dasher.SetColor(c)
	dasher.Start(pts[0])
	for _, p := range pts[1:] {
		dasher.Line(p)
	}
	dasher.Stop(false)
	dasher.Draw()
}

func fx(v float32) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fpt(x, y float32) fixed.Point26_6 {
	return fixed.Point26_6{X: fx(x), Y: fx(y)}
}

// roundRectPath approximates a rounded rectangle with short line
// segments per corner (spec §4.7 "rounded rectangle, radius-clipped
// corners").
func roundRectPath(cx, cy, halfW, halfH, radius float32) []fixed.Point26_6 {
	if radius > halfW {
		radius = halfW
	}
	if radius > halfH {
		radius = halfH
	}
	const cornerSegs = 6
	var pts []fixed.Point26_6
	corner := func(ccx, ccy, startAngle float32) {
		for i := 0; i <= cornerSegs; i++ {
			a := startAngle + float32(i)/cornerSegs*(math.Pi/2)
			pts = append(pts, fpt(ccx+radius*float32(math.Cos(float64(a))), ccy+radius*float32(math.Sin(float64(a)))))
		}
	}
	corner(cx+halfW-radius, cy-halfH+radius, -math.Pi/2)
	corner(cx+halfW-radius, cy+halfH-radius, 0)
	corner(cx-halfW+radius, cy+halfH-radius, math.Pi/2)
	corner(cx-halfW+radius, cy-halfH+radius, math.Pi)
	return pts
}

// diskPath approximates a filled circle as an N-gon.
func diskPath(cx, cy, radius float32) []fixed.Point26_6 {
	const segs = 20
	pts := make([]fixed.Point26_6, 0, segs)
	for i := 0; i < segs; i++ {
		a := float32(i) / segs * 2 * math.Pi
		pts = append(pts, fpt(cx+radius*float32(math.Cos(float64(a))), cy+radius*float32(math.Sin(float64(a)))))
	}
	return pts
}

// heartPath traces the classic parametric heart curve (spec §4.7 "heart
// SDF" — approximated here as a filled polygon rather than a true
// distance field, since the rasterizer already supplies anti-aliased
// polygon coverage).
func heartPath(cx, cy, size float32) []fixed.Point26_6 {
	const segs = 32
	pts := make([]fixed.Point26_6, 0, segs)
	for i := 0; i < segs; i++ {
		t := float64(i) / segs * 2 * math.Pi
		x := 16 * math.Pow(math.Sin(t), 3)
		y := -(13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t))
		pts = append(pts, fpt(cx+float32(x)*size/16, cy+float32(y)*size/16))
	}
	return pts
}

// drawX strokes an X mark as two diagonal segments.
func drawX(fb *rgb565.Image, cx, cy, size float32, c color.RGBA) {
	w := fx(size * 0.18)
	strokePath(fb, []fixed.Point26_6{fpt(cx-size, cy-size), fpt(cx+size, cy+size)}, w, c)
	strokePath(fb, []fixed.Point26_6{fpt(cx+size, cy-size), fpt(cx-size, cy+size)}, w, c)
}

// eyeGeometry returns the eye's screen-space center, half-size and
// pupil radius given the overall face dims and which side it is.
func (r *Renderer) eyeGeometry(left bool) (cx, cy, halfW, halfH float32) {
	halfW = float32(r.dims.X) * 0.11
	halfH = float32(r.dims.Y) * 0.16
	cy = float32(r.dims.Y) * 0.38
	if left {
		cx = float32(r.dims.X) * 0.32
	} else {
		cx = float32(r.dims.X) * 0.68
	}
	return
}

func (r *Renderer) drawEye(eye *EyeState, s *FaceState, left bool) {
	cx, cy, halfW, halfH := r.eyeGeometry(left)
	gazeRange := float32(r.dims.X) * 0.05
	cx += eye.GazeX * gazeRange
	cy += eye.GazeY * gazeRange * 0.6

	w := halfW * eye.WidthScale
	h := halfH * eye.HeightScale * clamp01(eye.Openness*0.9 + 0.1)

	col := moodColor(s.Mood)
	if s.Timers.Gestures[GestureRage].Active {
		// Per-frame ±20 red/green jitter on the rage color, matching
		// face_get_emotion_color's randi_range(-20, 20) in the original
		// firmware (esp32-face/main/face_state.cpp).
		jr := clampByte(0xff + r.rng.Intn(41) - 20)
		jg := clampByte(0x44 + r.rng.Intn(41) - 20)
		col = color.RGBA{R: jr, G: jg, B: 0x11, A: 0xff}
	} else if s.Timers.Gestures[GestureHeart].Active {
		col = color.RGBA{R: 0xff, G: 0x6f, B: 0x91, A: 0xff}
	} else if s.Timers.Gestures[GestureSurprise].Active {
		col = color.RGBA{R: 0xff, G: 0xff, B: 0xf0, A: 0xff}
	}
	col = scaleColor(col, s.Brightness)

	path := roundRectPath(cx, cy, w, h, h*0.4)
	fillPath(r.fb, path, col)

	lid := &s.LidL
	if !left {
		lid = &s.LidR
	}
	r.drawEyelid(cx, cy, w, h, lid)

	if s.Timers.Gestures[GestureXEyes].Active {
		drawX(r.fb, cx, cy, h*0.5, background)
		return
	}
	if s.Timers.Gestures[GestureHeart].Active {
		fillPath(r.fb, heartPath(cx, cy, h*0.6), background)
		return
	}
	if !s.SolidEye {
		pupil := diskPath(cx, cy, h*0.35)
		fillPath(r.fb, pupil, background)
	}
}

// drawEyelid masks the top/bottom of the eye with background-colored
// bars whose heights come from TopCoverage/BottomCoverage and whose
// top edge is skewed by Slope, producing asymmetric closure (spec
// §4.7: "Eyelid masking uses top coverage, bottom coverage, and a
// signed slope").
func (r *Renderer) drawEyelid(cx, cy, halfW, halfH float32, lid *EyelidState) {
	if lid.TopCoverage > 0.01 {
		cut := halfH * 2 * lid.TopCoverage
		skew := halfW * lid.Slope
		top := cy - halfH
		pts := []fixed.Point26_6{
			fpt(cx-halfW, top-1), fpt(cx+halfW, top-1),
			fpt(cx+halfW+skew, top+cut), fpt(cx-halfW+skew, top+cut),
		}
		fillPath(r.fb, pts, background)
	}
	if lid.BottomCoverage > 0.01 {
		cut := halfH * 2 * lid.BottomCoverage
		skew := halfW * lid.Slope
		bottom := cy + halfH
		pts := []fixed.Point26_6{
			fpt(cx-halfW+skew, bottom-cut), fpt(cx+halfW+skew, bottom-cut),
			fpt(cx+halfW, bottom+1), fpt(cx-halfW, bottom+1),
		}
		fillPath(r.fb, pts, background)
	}
}

func (r *Renderer) drawMouth(s *FaceState) {
	cx := float32(r.dims.X) * 0.5
	cy := float32(r.dims.Y) * 0.68
	width := float32(r.dims.X) * 0.24 * s.MouthWidth
	curve := s.MouthCurve * float32(r.dims.Y) * 0.06
	open := s.MouthOpen * float32(r.dims.Y) * 0.08
	wave := s.MouthWave
	offsetX := s.MouthOffset * width * 0.3

	const segs = 24
	pts := make([]fixed.Point26_6, 0, segs+1)
	for i := 0; i <= segs; i++ {
		t := float32(i) / segs
		x := cx + offsetX + (t-0.5)*width
		parabola := curve * (1 - 4*(t-0.5)*(t-0.5))
		ripple := wave * float32(math.Sin(float64(t)*2*math.Pi*2)) * 3
		y := cy - parabola + ripple + open*float32(math.Sin(float64(t)*math.Pi))
		pts = append(pts, fpt(x, y))
	}
	col := scaleColor(moodColor(s.Mood), s.Brightness)
	thickness := fx(float32(r.dims.Y) * MouthThickness)
	strokePath(r.fb, pts, thickness, col)
}

const particleDecayPerFrame = 1.0 / (FPS * 0.6) // ~0.6s lifetime

// drawFire ages and redraws the rage overlay's embers, spawning new ones
// near the eyes each frame while the gesture is active (spec §4.7
// "Rage overlays fire particles (palette by heat band)").
func (r *Renderer) drawFire(s *FaceState) {
	lcx, lcy, _, _ := r.eyeGeometry(true)
	rcx, rcy, _, _ := r.eyeGeometry(false)
	for i := range s.Effects.Fire {
		p := &s.Effects.Fire[i]
		if p.Life <= 0 {
			if r.rng.Float32() < 0.3 {
				origin := lcx
				oy := lcy
				if i%2 == 1 {
					origin, oy = rcx, rcy
				}
				*p = FireParticle{
					X:    origin + (r.rng.Float32()-0.5)*float32(r.dims.X)*0.08,
					Y:    oy - float32(r.dims.Y)*0.1,
					Life: 1,
					Heat: r.rng.Float32(),
				}
			}
			continue
		}
		p.Y -= float32(r.dims.Y) * 0.01
		p.Life -= particleDecayPerFrame
		heat := clamp01(p.Heat)
		col := color.RGBA{R: 0xff, G: uint8(120 + 120*heat), B: uint8(20 * heat), A: 0xff}
		blendPixel(r.fb, int(p.X), int(p.Y), col, clamp01(p.Life))
	}
}

// drawSparkles ages and redraws single-pixel highlights, spawning new
// ones near the eyes while enabled (spec §4.7 "Sparkle overlays
// single-pixel white highlights").
func (r *Renderer) drawSparkles(s *FaceState) {
	lcx, lcy, halfW, halfH := r.eyeGeometry(true)
	rcx, rcy, _, _ := r.eyeGeometry(false)
	for i := range s.Effects.Sparkles {
		p := &s.Effects.Sparkles[i]
		if p.Life <= 0 {
			if r.rng.Float32() < 0.1 {
				cx, cy := lcx, lcy
				if i%2 == 1 {
					cx, cy = rcx, rcy
				}
				*p = SparkleParticle{
					X:    cx + (r.rng.Float32()-0.5)*halfW,
					Y:    cy + (r.rng.Float32()-0.5)*halfH,
					Life: 1,
				}
			}
			continue
		}
		p.Life -= particleDecayPerFrame * 2
		blendPixel(r.fb, int(p.X), int(p.Y), color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, clamp01(p.Life))
	}
}

// applyAfterglow composites the downsampled shadow of the previous
// frame wherever this frame is still background (spec §4.9).
func (r *Renderer) applyAfterglow() {
	b := r.fb.Bounds()
	sb := r.shadow.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		sy := sb.Min.Y + (y-b.Min.Y)/r.shadowScale
		for x := b.Min.X; x < b.Max.X; x++ {
			cur := r.fb.At(x, y)
			if !isBackground(cur) {
				continue
			}
			sx := sb.Min.X + (x-b.Min.X)/r.shadowScale
			prev := r.shadow.At(sx, sy)
			if isBackground(prev) {
				continue
			}
			blendPixel(r.fb, x, y, toRGBA(prev), 0.4)
		}
	}
}

func isBackground(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	br, bg, bb, _ := background.RGBA()
	return r == br && g == bg && b == bb
}

func toRGBA(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

// captureShadow downsamples the current framebuffer into the shadow
// buffer for next frame's afterglow (spec §4.9: "After composition, the
// new framebuffer is copied into the shadow").
func (r *Renderer) captureShadow() {
	sb := r.shadow.Bounds()
	for sy := sb.Min.Y; sy < sb.Max.Y; sy++ {
		for sx := sb.Min.X; sx < sb.Max.X; sx++ {
			x := sx * r.shadowScale
			y := sy * r.shadowScale
			r.shadow.Set(sx, sy, r.fb.At(x, y))
		}
	}
}

// drawSystemOverlay draws the mode-specific icon on top of the pose the
// animation task already drove (spec §4.7 "System-mode icon overlays").
func (r *Renderer) drawSystemOverlay(s *FaceState) {
	switch s.System.Mode {
	case SystemError:
		r.drawTriangle(float32(r.dims.X)*0.5, float32(r.dims.Y)*0.12, float32(r.dims.Y)*0.05, color.RGBA{R: 0xff, G: 0xcc, B: 0x00, A: 0xff})
	case SystemLowBattery:
		r.drawBattery(s.System.Param)
	case SystemUpdating:
		r.drawProgressBar(s.System.Param)
	}
}

func (r *Renderer) drawTriangle(cx, cy, size float32, c color.RGBA) {
	pts := []fixed.Point26_6{
		fpt(cx, cy-size), fpt(cx+size, cy+size), fpt(cx-size, cy+size),
	}
	fillPath(r.fb, pts, c)
}

func (r *Renderer) drawBattery(level float32) {
	w := float32(r.dims.X) * 0.2
	h := float32(r.dims.Y) * 0.06
	cx := float32(r.dims.X) * 0.5
	cy := float32(r.dims.Y) * 0.1
	outline := color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
	fillPath(r.fb, roundRectPath(cx, cy, w/2, h/2, 2), outline)
	fill := color.RGBA{R: 0x3d, G: 0xd9, B: 0x5a, A: 0xff}
	if level < 0.2 {
		fill = color.RGBA{R: 0xe7, G: 0x3b, B: 0x2c, A: 0xff}
	}
	innerW := (w - 4) * clamp01(level)
	fillPath(r.fb, roundRectPath(cx-w/2+2+innerW/2, cy, innerW/2, h/2-2, 1), fill)
}

func (r *Renderer) drawProgressBar(progress float32) {
	w := float32(r.dims.X) * 0.6
	h := float32(r.dims.Y) * 0.04
	cx := float32(r.dims.X) * 0.5
	cy := float32(r.dims.Y) * 0.9
	track := color.RGBA{R: 0x30, G: 0x30, B: 0x38, A: 0xff}
	fillPath(r.fb, roundRectPath(cx, cy, w/2, h/2, h/2), track)
	fillW := w * clamp01(progress)
	fill := color.RGBA{R: 0x4f, G: 0xc3, B: 0xf7, A: 0xff}
	fillPath(r.fb, roundRectPath(cx-w/2+fillW/2, cy, fillW/2, h/2-1, h/3), fill)
}

// drawBorder draws the conversation border band and its two corner
// buttons (spec §4.8).
func (r *Renderer) drawBorder(border *Border, nowUs uint64) {
	thickness := r.dims.Y / 24
	col := border.LEDColor()
	alpha := border.Alpha
	b := r.fb.Bounds()
	for y := b.Min.Y; y < b.Min.Y+thickness; y++ {
		hLineAlpha(r.fb, b.Min.X, b.Max.X, y, border.Color, alpha)
	}
	for y := b.Max.Y - thickness; y < b.Max.Y; y++ {
		hLineAlpha(r.fb, b.Min.X, b.Max.X, y, border.Color, alpha)
	}
	for x := b.Min.X; x < b.Min.X+thickness; x++ {
		vLineAlpha(r.fb, x, b.Min.Y, b.Max.Y, border.Color, alpha)
	}
	for x := b.Max.X - thickness; x < b.Max.X; x++ {
		vLineAlpha(r.fb, x, b.Min.Y, b.Max.Y, border.Color, alpha)
	}

	corner := thickness * 2
	fillPath(r.fb, roundRectPath(float32(corner), float32(r.dims.Y-corner), float32(corner)*0.8, float32(corner)*0.8, float32(corner)*0.3), col)
	fillPath(r.fb, roundRectPath(float32(r.dims.X-corner), float32(r.dims.Y-corner), float32(corner)*0.8, float32(corner)*0.8, float32(corner)*0.3), col)

	if border.State == ConvThinking {
		for _, angle := range border.OrbitPositions(nowUs) {
			x := float32(r.dims.X)/2 + float32(r.dims.X)*0.4*float32(math.Cos(float64(angle)))
			y := float32(r.dims.Y)/2 + float32(r.dims.Y)*0.4*float32(math.Sin(float64(angle)))
			fillPath(r.fb, diskPath(x, y, 4), col)
		}
	}
}

func hLineAlpha(fb *rgb565.Image, x0, x1 int, y int, c color.RGBA, alpha float32) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	for x := x0; x < x1; x++ {
		blendPixel(fb, x, y, c, alpha)
	}
}

func vLineAlpha(fb *rgb565.Image, x int, y0, y1 int, c color.RGBA, alpha float32) {
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y < y1; y++ {
		blendPixel(fb, x, y, c, alpha)
	}
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
