// Package conv provides checked integer conversions.
//
// The clustering loop sizes its scratch tables from user-controlled
// counts; these helpers keep the size arithmetic from silently wrapping.
package conv
