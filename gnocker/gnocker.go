package gnocker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber"
	"github.com/gofiber/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zerbitx/gnockfile/encode"
	"github.com/zerbitx/gnockfile/mock"
)

type (
	gnocker struct {
		app           *fiber.App
		adminBasePath string
		mocksDir      string
		logger        logrus.FieldLogger
		port          int
		host          string
	}

	config struct {
		port          int
		adminBasePath string
		mocksDir      string
		host          string
		logger        logrus.FieldLogger
	}

	// Option is a function that can modify a default config
	Option func(c *config)

	// fiberWriter lets mock.Dispatch write to a fiber context
	fiberWriter struct {
		c *fiber.Ctx
	}
)

// GnockerHeader names a mock file to serve from the resolved directory in place of <METHOD>.mock
const GnockerHeader = "X-GNOCK-MOCK"

// New returns a new gnocker serving ./mocks on 127.0.0.1:8080
func New(options ...Option) *gnocker {
	logrus.SetReportCaller(true)
	c := &config{
		port:          8080,
		logger:        logrus.StandardLogger(),
		host:          "127.0.0.1",
		mocksDir:      "./mocks",
		adminBasePath: "/__gnock",
	}

	for _, applyOption := range options {
		applyOption(c)
	}

	app := fiber.New(&fiber.Settings{
		ServerHeader:          "GnockFile",
		DisableStartupMessage: true,
	})

	g := &gnocker{
		logger:        c.logger,
		app:           app,
		port:          c.port,
		host:          c.host,
		mocksDir:      c.mocksDir,
		adminBasePath: c.adminBasePath,
	}

	g.initAdminEndpoints()
	app.Use(fiber.Handler(g.serve))

	return g
}

// Start listens until the app is shut down
func (g *gnocker) Start() error {
	g.logger.WithFields(logrus.Fields{"host": g.host, "port": g.port, "mocksDir": g.mocksDir}).Info("main")

	return g.app.Listen(fmt.Sprintf("%s:%d", g.host, g.port))
}

// Shutdown gracefully shuts down the app
func (g *gnocker) Shutdown() error {
	if shutdownErr := g.app.Shutdown(); shutdownErr != nil {
		return fmt.Errorf("failed to shutdown app %w", shutdownErr)
	}

	return nil
}

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithHost sets the host
func WithHost(host string) Option {
	return func(c *config) {
		c.host = host
	}
}

// WithPort sets the main app's port
func WithPort(port int) Option {
	return func(c *config) {
		c.port = port
	}
}

// WithMocksDir sets the root directory mocks are resolved under
func WithMocksDir(dir string) Option {
	return func(c *config) {
		c.mocksDir = dir
	}
}

// WithAdminBasePath sets the base path of the read only admin endpoints
func WithAdminBasePath(basePath string) Option {
	return func(c *config) {
		c.adminBasePath = basePath
	}
}

// serve answers every request that is not an admin request from the mocks directory
func (g *gnocker) serve(c *fiber.Ctx) {
	req := requestFrom(c)
	logger := g.logger.WithFields(logrus.Fields{
		"requestId": uuid.New().String(),
		"method":    req.Method,
		"path":      req.Path,
	})

	file := g.mockFile(req.Path, req.Method, c.Get(GnockerHeader))
	logger.WithField("mockFile", file).Debug("serving")

	res, delay, err := mock.NewCompiler(logger).Compile(file, req)
	if err != nil {
		logger.WithError(err).Error("failed to compile mock")
		g.fail(c, err)
		return
	}

	if err := mock.Dispatch(c.Fasthttp, fiberWriter{c}, res, delay); err != nil {
		logger.WithError(err).Debug("response abandoned")
	}
}

// mockFile picks the file within the resolved directory, named by the override header when one was sent
func (g *gnocker) mockFile(path, method, override string) string {
	dir := mock.Resolve(path, g.mocksDir)
	if override == "" {
		return mock.File(dir, method)
	}

	name := filepath.Base(filepath.Clean("/" + override))
	if !strings.HasSuffix(name, mock.Extension) {
		name += mock.Extension
	}

	return filepath.Join(dir, name)
}

// fail answers a request whose mock could not be compiled
func (g *gnocker) fail(c *fiber.Ctx, err error) {
	c.Status(http.StatusInternalServerError)
	c.Set("Content-Type", encode.ContentType)

	if encodeErr := encode.Error(err, c.Fasthttp.Response.BodyWriter()); encodeErr != nil {
		g.logger.WithError(encodeErr).Error("Failed to encode response")
	}
}

func (g *gnocker) initAdminEndpoints() {
	g.logger.
		WithFields(logrus.Fields{
			"resolve": g.adminBasePath + "/resolve",
			"health":  g.adminBasePath + "/health",
		}).Debug("admin endpoints")

	g.app.Get(g.adminBasePath+"/resolve", func(c *fiber.Ctx) {
		path := c.Query("path")
		if path == "" {
			path = "/"
		}
		method := c.Query("method")
		if method == "" {
			method = http.MethodGet
		}

		file := g.mockFile(path, method, c.Query("mock"))
		_, statErr := os.Stat(file)

		g.sendJSON(c, resolution{
			Directory: filepath.Dir(file),
			File:      file,
			Exists:    statErr == nil,
		})
	})

	g.app.Get(g.adminBasePath+"/health", func(c *fiber.Ctx) {
		g.sendJSON(c, map[string]string{
			"status":   "ok",
			"mocksDir": g.mocksDir,
		})
	})
}

type resolution struct {
	Directory string `json:"directory"`
	File      string `json:"file"`
	Exists    bool   `json:"exists"`
}

func (g *gnocker) sendJSON(c *fiber.Ctx, v interface{}) {
	c.Set("Content-Type", encode.ContentType)

	if err := encode.JSONIndented(v, c.Fasthttp.Response.BodyWriter()); err != nil {
		g.logger.WithError(err).Error("Failed to encode response")
		c.SendStatus(http.StatusInternalServerError)
	}
}

// requestFrom snapshots the parts of a fiber request templates can see.
// fasthttp reuses its buffers once the handler returns, so everything is copied.
func requestFrom(c *fiber.Ctx) *mock.Request {
	req := &mock.Request{
		Method:      utils.ToUpper(utils.ImmutableString(c.Method())),
		Path:        utils.ImmutableString(c.Path()),
		Protocol:    c.Protocol(),
		HTTPVersion: "1.0",
		Query:       map[string]string{},
		Headers:     map[string]string{},
	}

	if c.Fasthttp.Request.Header.IsHTTP11() {
		req.HTTPVersion = "1.1"
	}

	c.Fasthttp.QueryArgs().VisitAll(func(key, value []byte) {
		req.Query[string(key)] = string(value)
	})

	c.Fasthttp.Request.Header.VisitAll(func(key, value []byte) {
		req.Headers[utils.ToLower(string(key))] = string(value)
	})

	req.Body = bodyOf(c)

	return req
}

// bodyOf decodes JSON bodies so templates can reach into them, anything else is kept as text
func bodyOf(c *fiber.Ctx) interface{} {
	raw := utils.ImmutableString(c.Body())
	if raw == "" {
		return nil
	}

	if strings.Contains(c.Get("Content-Type"), "json") {
		var decoded interface{}
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			return decoded
		}
	}

	return raw
}

// SetStatus implements mock.ResponseWriter
func (w fiberWriter) SetStatus(code int) {
	w.c.Status(code)
}

// SetHeader implements mock.ResponseWriter
func (w fiberWriter) SetHeader(key, value string) {
	w.c.Set(key, value)
}

// Send implements mock.ResponseWriter
func (w fiberWriter) Send(body string) error {
	w.c.Send(body)

	return nil
}
