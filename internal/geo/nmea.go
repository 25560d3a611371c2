package geo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"

	"github.com/atinyakov/roadsigns/internal/models"
)

const (
	// maxHDOP is the worst horizontal dilution accepted for a high-accuracy fix.
	maxHDOP = 5.0
	// assumedUERE is the per-satellite range error, in meters, used to turn
	// HDOP into a horizontal accuracy estimate.
	assumedUERE = 5.0
)

// NMEA reads fixes from a GPS receiver that emits NMEA 0183 sentences, such
// as a serial device node or a recorded log file.
type NMEA struct {
	// Path is the device or file to read.
	Path string
	open func(string) (io.ReadCloser, error)
}

// NewNMEA returns an NMEA locator reading from path.
func NewNMEA(path string) *NMEA {
	return &NMEA{Path: path, open: openFile}
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type fixResult struct {
	pos models.Position
	err error
}

// RequestPosition opens the receiver and returns the first acceptable fix.
// The reader is closed when ctx ends, which unblocks the pending read.
func (n *NMEA) RequestPosition(ctx context.Context, opts Options) (models.Position, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	rc, err := n.open(n.Path)
	switch {
	case errors.Is(err, os.ErrPermission):
		return models.Position{}, fmt.Errorf("%w: %s", ErrDenied, n.Path)
	case err != nil:
		return models.Position{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	results := make(chan fixResult, 1)
	go func() {
		pos, err := scanFix(rc, opts.HighAccuracy)
		results <- fixResult{pos: pos, err: err}
	}()

	select {
	case r := <-results:
		rc.Close()
		return r.pos, r.err
	case <-ctx.Done():
		rc.Close()
		<-results
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.Position{}, ErrTimeout
		}
		return models.Position{}, ctx.Err()
	}
}

func scanFix(r io.Reader, highAccuracy bool) (models.Position, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}
		s, err := nmea.Parse(line)
		if err != nil {
			continue
		}
		if pos, ok := fixFrom(s, highAccuracy); ok {
			return pos, nil
		}
	}
	if err := sc.Err(); err != nil {
		return models.Position{}, fmt.Errorf("%w: read: %v", ErrUnavailable, err)
	}
	return models.Position{}, fmt.Errorf("%w: no fix in stream", ErrUnavailable)
}

// fixFrom accepts GGA sentences with a real fix, and RMC sentences marked
// valid unless high accuracy was asked for.
func fixFrom(s nmea.Sentence, highAccuracy bool) (models.Position, bool) {
	switch v := s.(type) {
	case nmea.GGA:
		if v.FixQuality == nmea.Invalid || v.FixQuality == "" {
			return models.Position{}, false
		}
		if highAccuracy && v.HDOP > maxHDOP {
			return models.Position{}, false
		}
		return models.Position{
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			Accuracy:  v.HDOP * assumedUERE,
			At:        time.Now(),
		}, true
	case nmea.RMC:
		if highAccuracy || v.Validity != nmea.ValidRMC {
			return models.Position{}, false
		}
		return models.Position{
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			At:        time.Now(),
		}, true
	}
	return models.Position{}, false
}
