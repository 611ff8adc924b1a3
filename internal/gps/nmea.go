// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// userRangeErrorM converts HDOP to an approximate horizontal accuracy.
const userRangeErrorM = 5.0

// Parser accumulates NMEA sentences into fixes. RMC sentences produce a
// fix; GGA sentences only refresh the accuracy estimate.
type Parser struct {
	hdop     float64
	haveHDOP bool
}

// Feed parses one NMEA line. It returns a fix and true for each RMC
// sentence. Lines that are not NMEA or fail the checksum are skipped
// without error so noisy receivers don't stop the stream.
func (p *Parser) Feed(line string) (Fix, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		m := sentence.(nmea.GGA)
		if m.FixQuality == nmea.Invalid {
			p.haveHDOP = false
			return Fix{}, false
		}
		p.hdop = m.HDOP
		p.haveHDOP = m.HDOP > 0
		return Fix{}, false

	case nmea.TypeRMC:
		m := sentence.(nmea.RMC)
		fix := Fix{
			Time:       fixTime(m.Date, m.Time),
			Latitude:   m.Latitude,
			Longitude:  m.Longitude,
			SpeedKnots: m.Speed,
			CourseDeg:  m.Course,
			Validity:   string(m.Validity),
		}
		if p.haveHDOP {
			fix.AccuracyM = p.hdop * userRangeErrorM
		}
		return fix, true
	}
	return Fix{}, false
}

func fixTime(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return time.Now().UTC()
	}
	return time.Date(2000+d.YY, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}

// Scan reads NMEA lines from r and calls fn for every fix until r is
// exhausted, a read fails or ctx is cancelled.
func Scan(ctx context.Context, r io.Reader, fn func(Fix)) error {
	var p Parser
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := reader.ReadString('\n')
		if fix, ok := p.Feed(line); ok {
			fn(fix)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gps read: %w", err)
		}
	}
}
