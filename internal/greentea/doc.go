// Package greentea speaks the greentea host-test protocol.
//
// Records are single lines of the form {{key;value;value...}}. The device
// side (Client) writes them; the host side (Parse, Scanner) reads them
// back, skipping any other output interleaved on the same stream.
//
// AbortHandlers and ContinueHandlers build harness handler tables that
// report test progress as greentea records in addition to the verbose
// human-readable output.
package greentea
