// Package fatigue turns per-frame face landmarks into fatigue signals.
//
// A Session receives one Frame at a time and routes it either to the
// Calibrator or to the detectors: eye closure and blinks from the eye aspect
// ratio (EAR), yawns from the mouth aspect ratio (MAR) and abnormal blink
// rates from a rolling one-minute counter. Every emitted Event increments the
// session's event count, which maps to a Level.
//
// All timing is derived from frame timestamps. A Session is not safe for
// concurrent use; callers serialize Process and the control methods.
package fatigue
