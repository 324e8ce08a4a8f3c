// Package omegatx provides clients for Omega iServer environmental
// transmitters.
//
// Two models are supported:
//
//   - iBTHX-W (Barometer): temperature, humidity, pressure and dewpoint,
//     queried with text commands over TCP.
//   - iTHX-W (Hygrometer): temperature, humidity and dewpoint, scraped
//     from the transmitter's HTML status page.
//
// # Basic Usage
//
//	ctx := context.Background()
//	tx, err := omegatx.NewBarometer("192.168.1.60")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reading, err := omegatx.ReadOnce(ctx, tx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if v, ok := reading.Lookup(omegatx.LabelTemperatureC); ok && v.Valid() {
//	    fmt.Println(v)
//	}
//
// # Configuration
//
// Clients are configured using functional options:
//
//	tx, err := omegatx.NewHygrometer("192.168.1.61",
//	    omegatx.WithTimeout(5*time.Second),
//	    omegatx.WithLogger(slog.Default()),
//	)
//
// # Failures
//
// Device faults never surface as errors from Get. A Barometer channel that
// times out or returns garbage is absent in the Reading; a Hygrometer read
// that fails for any reason returns an empty Reading. Callers should
// distinguish Reading.Empty (nothing came back) from absent channels in a
// non-empty Reading (some values came back).
package omegatx
