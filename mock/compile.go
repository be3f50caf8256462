package mock

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	minStatus = 100
	maxStatus = 599

	// maxDelayMillis is the longest delay a time.Duration can hold
	maxDelayMillis = math.MaxInt64 / int64(time.Millisecond)
)

var (
	statusPattern = regexp.MustCompile(`(?i)HTTP/\d.*?\s+(\d{3})`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Compiler turns mock definition files into responses
type Compiler struct {
	logger logrus.FieldLogger
}

// NewCompiler returns a Compiler logging to logger, or to the standard logger when logger is nil
func NewCompiler(logger logrus.FieldLogger) *Compiler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Compiler{logger: logger}
}

// Compile is shorthand for compiling with the standard logger
func Compile(file string, req *Request) (Response, time.Duration, error) {
	return NewCompiler(nil).Compile(file, req)
}

// Compile reads file and renders it against req.
//
// A file that does not exist is not an error, it compiles to NotFound with no delay.
// The delay is only ever returned, it is never kept between calls.
func (c *Compiler) Compile(file string, req *Request) (Response, time.Duration, error) {
	logger := c.logger.WithField("mockFile", file)

	content, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Error("No suitable mock file found, sending default response")
		return NotFound(), 0, nil
	}
	if err != nil {
		return Response{}, 0, &FileSystemError{Path: file, Err: err}
	}

	expanded, err := Expand(string(content), req)
	if err != nil {
		logger.WithError(err).Error("failed to expand mock")
		return Response{}, 0, err
	}

	meta, body := splitRegions(lines(expanded))

	res, delay, err := c.parseMeta(logger, meta)
	if err != nil {
		return Response{}, 0, err
	}

	res.Body, err = Expand(normalizeBody(body), req)
	if err != nil {
		logger.WithError(err).Error("failed to expand mock body")
		return Response{}, 0, err
	}

	logger.WithFields(logrus.Fields{"status": res.Status, "delay": delay}).Debug("compiled")

	return res, delay, nil
}

// parseMeta interprets the status line, headers and delay directive ahead of the body
func (c *Compiler) parseMeta(logger logrus.FieldLogger, meta []string) (Response, time.Duration, error) {
	res := Response{
		Status:  NotFound().Status,
		Headers: map[string]string{},
	}
	var delay time.Duration

	for _, line := range meta {
		if strings.Contains(line, "HTTP") {
			status, err := parseStatus(line)
			if err != nil {
				logger.WithError(err).Error("Response code should be a valid status")
				return Response{}, 0, err
			}
			res.Status = status
			logger.WithField("status", status).Debug("status set")
			continue
		}

		key, value := splitHeader(line)
		if key == "" {
			continue
		}
		if strings.EqualFold(key, DelayHeader) {
			delay = parseDelay(logger, value)
			continue
		}

		res.Headers[key] = value
		logger.WithField(key, value).Debug("header set")
	}

	return res, delay, nil
}

func parseStatus(line string) (int, error) {
	match := statusPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, MalformedStatusLine(line)
	}

	// three digits always fit
	status, _ := strconv.Atoi(match[1])
	if status < minStatus || status > maxStatus {
		return 0, MalformedStatusLine(line)
	}

	return status, nil
}

func splitHeader(line string) (string, string) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) == 1 {
		return strings.TrimSpace(parts[0]), ""
	}

	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func parseDelay(logger logrus.FieldLogger, value string) time.Duration {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms < 0 || ms > maxDelayMillis {
		logger.WithField(DelayHeader, value).Warn("ignoring invalid delay")
		return 0
	}

	logger.WithField("delay", ms).Debug("delay set")

	return time.Duration(ms) * time.Millisecond
}

func lines(text string) []string {
	split := strings.Split(text, "\n")
	for i, line := range split {
		split[i] = strings.TrimSuffix(line, "\r")
	}

	return split
}

// splitRegions separates the metadata lines from the body lines at the first blank line.
// The blank line itself belongs to neither.
func splitRegions(lines []string) (meta, body []string) {
	for i, line := range lines {
		if line == "" {
			return lines[:i], lines[i+1:]
		}
	}

	return lines, nil
}

// normalizeBody joins the body lines, collapses whitespace and breaks up the first literal triple braces
// so they are not read as a raw {{{expression}}} on the second expansion.
func normalizeBody(body []string) string {
	joined := whitespace.ReplaceAllString(strings.Join(body, ""), " ")
	joined = strings.TrimSpace(joined)
	joined = strings.Replace(joined, "{{{", "{ {{", 1)

	return strings.Replace(joined, "}}}", "}} }", 1)
}
