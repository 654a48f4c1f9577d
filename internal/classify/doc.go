// Package classify derives activity flags and display fields from raw
// provider threads.
//
// Classification is pure over its inputs: the same thread, label set and
// policy always produce the same record, so results can be cached or
// re-derived freely. The only I/O is the optional header-recovery fetch
// for messages that arrived without a payload.
package classify
