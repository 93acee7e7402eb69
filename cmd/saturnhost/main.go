// Command saturnhost is a minimal GLFW+OpenGL shell around the saturn
// package: it owns the window, the keyboard-to-row mapping, and the
// per-frame Tick/DisplayBuffer loop (spec §6's external interface),
// mirroring the teacher's ui package (a GLFW window pumping a PPU-rendered
// *image.RGBA into a single textured quad once per prepared frame),
// generalized from the NES's PPU-dot-driven "frame ready" signal to the
// Saturn's host-paced Tick + dirty-flag signal.
package main

import (
	"flag"
	"strings"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"

	"github.com/dmccray/saturn48"
)

var (
	romPath      = flag.String("rom", "", "path to the ROM image")
	ramPath      = flag.String("ram", "saturn.ram", "path to the RAM image (created if absent)")
	confPath     = flag.String("conf", "", "path to an optional config file")
	snapshotPath = flag.String("snapshot", "", "path to a snapshot to resume from")
	variantFlag  = flag.String("variant", "sx", "calculator variant: sx or gx")
)

const (
	vertexShader = `
  #version 330

  attribute vec3 position;
  attribute vec2 uv;
  varying vec2 vuv;
  void main(void){
    gl_Position = vec4(position, 1.0);
    vuv = uv;
  }
  ` + "\x00"

	fragmentShader = `
  #version 330

  varying vec2 vuv;
  uniform sampler2D texture;
  void main(void){
    gl_FragColor = texture2D(texture, vuv);
  }
  ` + "\x00"
)

func compileShader(code string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	ccode := gl.Str(code)
	gl.ShaderSource(shader, 1, &ccode, nil)
	gl.CompileShader(shader)
	var result int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &result)
	if result == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
		infoLog := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(shader, length, nil, gl.Str(infoLog))
		glog.Fatalf("saturnhost: shader compile failed: %s", infoLog)
	}
	return shader, nil
}

func newProgram() uint32 {
	vs, _ := compileShader(vertexShader, gl.VERTEX_SHADER)
	fs, _ := compileShader(fragmentShader, gl.FRAGMENT_SHADER)
	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	var result int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &result)
	if result == gl.FALSE {
		var length int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
		infoLog := strings.Repeat("\x00", int(length+1))
		gl.GetProgramInfoLog(program, length, nil, gl.Str(infoLog))
		glog.Fatalf("saturnhost: program link failed: %s", infoLog)
	}
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	return program
}

var vertexPosition = []float32{1, 1, -1, 1, -1, -1, 1, -1}
var vertexUV = []float32{1, 0, 0, 0, 0, 1, 1, 1}

func updateTexture(program uint32, m *saturn.Machine) {
	img := m.GetDisplayBuffer()
	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(img.Rect.Size().X), int32(img.Rect.Size().Y),
		0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	positionLocation := uint32(gl.GetAttribLocation(program, gl.Str("position\x00")))
	uvLocation := uint32(gl.GetAttribLocation(program, gl.Str("uv\x00")))
	textureLocation := gl.GetUniformLocation(program, gl.Str("texture\x00"))
	gl.EnableVertexAttribArray(positionLocation)
	gl.EnableVertexAttribArray(uvLocation)
	gl.Uniform1i(textureLocation, 0)
	gl.VertexAttribPointer(positionLocation, 2, gl.FLOAT, false, 0, gl.Ptr(vertexPosition))
	gl.VertexAttribPointer(uvLocation, 2, gl.FLOAT, false, 0, gl.Ptr(vertexUV))
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.DrawArrays(gl.TRIANGLE_FAN, 0, 4)
}

// keymap assigns a few host keys to (row, bit) positions of the HP-48
// keyboard matrix for a minimal playable subset; a full 9x8 key matrix is
// straightforward to extend but not needed to exercise the core.
var keymap = map[glfw.Key]struct {
	row  int
	mask uint16
}{
	glfw.Key0:     {7, 0x01},
	glfw.Key1:     {6, 0x01},
	glfw.Key2:     {6, 0x02},
	glfw.Key3:     {6, 0x04},
	glfw.KeyPeriod: {7, 0x02},
	glfw.KeyEnter: {7, 0x04},
	glfw.KeyBackspace: {0, 0x01},
}

func pollKeys(window *glfw.Window, m *saturn.Machine) {
	for key, k := range keymap {
		pressed := window.GetKey(key) == glfw.Press
		m.SetKey(k.row, k.mask, pressed)
	}
}

func main() {
	flag.Parse()
	if *romPath == "" {
		glog.Fatal("saturnhost: -rom is required")
	}

	m, err := saturn.Init(*romPath, *ramPath, *confPath, *snapshotPath, saturn.ParseVariant(*variantFlag))
	if err != nil {
		glog.Fatalf("saturnhost: init failed: %v", err)
	}
	defer func() {
		if err := m.Shutdown(); err != nil {
			glog.Errorf("saturnhost: shutdown: %v", err)
		}
	}()

	if err := glfw.Init(); err != nil {
		glog.Fatalln(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	window, err := glfw.CreateWindow(524, 284, "saturn48", nil, nil)
	if err != nil {
		glog.Fatalln(err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glog.Fatalln(err)
	}
	program := newProgram()
	gl.UseProgram(program)

	last := time.Now()
	for !window.ShouldClose() {
		now := time.Now()
		elapsedMS := float64(now.Sub(last)) / float64(time.Millisecond)
		last = now

		pollKeys(window, m)
		m.Tick(elapsedMS)

		if m.IsDisplayDirty() {
			updateTexture(program, m)
			m.ClearDisplayDirty()
			window.SwapBuffers()
		}
		glfw.PollEvents()
		time.Sleep(time.Millisecond)
	}
}
