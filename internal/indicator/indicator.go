// Package indicator provides the technical indicator calculators.
//
// Every calculator is a pure function from a candle series (plus
// parameters) to one or more output series aligned index-for-index with the
// input: output[i].Time == candles[i].Time, with NaN values during the
// calculator's warm-up window. Calculators never return errors for
// well-formed input — mathematically undefined points come back as NaN.
package indicator

import (
	"chartcore/internal/model"
	"chartcore/internal/registry"
)

// NamedSeries is one output line of an indicator.
type NamedSeries struct {
	Name   string
	Points []model.DataPoint
}

// Output is the tagged result of one indicator computation. The concrete
// variant matches the registry render hint for the type, declaring exactly
// the series it produces.
type Output interface {
	Hint() registry.Hint
	// Series flattens the variant into its named series, in draw order.
	// Profile outputs return nil — they are not time-aligned series.
	Series() []NamedSeries
}

// Lines is the output of single- or multi-line indicators.
type Lines struct {
	Set []NamedSeries
}

func (Lines) Hint() registry.Hint     { return registry.HintLine }
func (o Lines) Series() []NamedSeries { return o.Set }

// Histogram is the output of MACD-shaped indicators: zero or more lines
// plus a bar series drawn as a histogram.
type Histogram struct {
	LineSet []NamedSeries
	Bars    NamedSeries
}

func (Histogram) Hint() registry.Hint { return registry.HintHistogram }
func (o Histogram) Series() []NamedSeries {
	return append(append([]NamedSeries{}, o.LineSet...), o.Bars)
}

// Bands is the output of channel indicators: a middle line with an upper
// and lower envelope.
type Bands struct {
	Middle NamedSeries
	Upper  NamedSeries
	Lower  NamedSeries
}

func (Bands) Hint() registry.Hint { return registry.HintBands }
func (o Bands) Series() []NamedSeries {
	return []NamedSeries{o.Middle, o.Upper, o.Lower}
}

// Cloud is the Ichimoku output: conversion/base lines, the two cloud spans,
// and the lagging close.
type Cloud struct {
	Conversion NamedSeries
	Base       NamedSeries
	SpanA      NamedSeries
	SpanB      NamedSeries
	Lagging    NamedSeries
}

func (Cloud) Hint() registry.Hint { return registry.HintCloud }
func (o Cloud) Series() []NamedSeries {
	return []NamedSeries{o.Conversion, o.Base, o.SpanA, o.SpanB, o.Lagging}
}

func line(name string, candles []model.Candle, values []float64) NamedSeries {
	return NamedSeries{Name: name, Points: attach(candles, values)}
}
