// Package stroke implements manual touch-up of a keyed image with a round
// brush.
//
// A brush movement is recorded as a sequence of Segments. Each segment is
// rasterised as an antialiased capsule (a straight chord of the segment's
// width with round caps) and composited into the working image straight away:
//
//   - ModePaint cuts pixels out by lowering their alpha by the brush coverage,
//     so fully covered pixels become transparent.
//   - ModeErase restores the original pixels through the same coverage, so
//     fully covered pixels become the opaque original again.
//
// A Session drives the Idle → Drawing → Idle pointer state machine, keeps the
// segment history and can undo segments by replaying the history over the
// image it started from.
//
// # Thread Safety
//
// A Session owns its working image. All methods are safe for concurrent use;
// readers take a Snapshot instead of touching the working buffer.
package stroke
