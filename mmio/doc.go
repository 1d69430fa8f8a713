// Package mmio provides byte-addressable views of memory-mapped hardware windows.
//
// A Region is what a flash command sequence is written against: every Load and
// Store is a single byte access issued in program order. Regions come from a
// Mapper, either DevMem for real physical memory or any in-process stand-in
// such as Memory or a simulated chip.
package mmio
