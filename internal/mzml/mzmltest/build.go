// Package mzmltest writes small mzML documents for tests
package mzmltest

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Spectrum describes one spectrum of a generated document
type Spectrum struct {
	MsLevel       int
	RetentionTime float64 // minutes
	TIC           float64
	Mz            []float64
	Intensity     []float64
	// Isolation window, written for MS2 spectra
	TargetMz    float64
	LowerOffset float64
	UpperOffset float64
}

func encode(v []float64, compress bool) string {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	if compress {
		var b bytes.Buffer
		z := zlib.NewWriter(&b)
		z.Write(buf)
		z.Close()
		buf = b.Bytes()
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func binaryArray(v []float64, accession string, compress bool) string {
	comp := `<cvParam cvRef="MS" accession="MS:1000576" name="no compression"/>`
	if compress {
		comp = `<cvParam cvRef="MS" accession="MS:1000574" name="zlib compression"/>`
	}
	return fmt.Sprintf(`<binaryDataArray>
<cvParam cvRef="MS" accession="MS:1000523" name="64-bit float"/>
%s
<cvParam cvRef="MS" accession="%s" name="array"/>
<binary>%s</binary>
</binaryDataArray>
`, comp, accession, encode(v, compress))
}

// Build returns an indexed mzML document containing spectra. Retention
// times are written in seconds to exercise unit conversion.
func Build(runID string, spectra []Spectrum, compress bool) []byte {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>
<indexedmzML xmlns="http://psi.hupo.org/ms/mzml">
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
`)
	fmt.Fprintf(&sb, "<run id=%q>\n<spectrumList count=\"%d\">\n", runID, len(spectra))
	for i, s := range spectra {
		fmt.Fprintf(&sb, "<spectrum index=\"%d\" id=\"scan=%d\" defaultArrayLength=\"%d\">\n", i, i+1, len(s.Mz))
		fmt.Fprintf(&sb, "<cvParam cvRef=\"MS\" accession=\"MS:1000511\" name=\"ms level\" value=\"%d\"/>\n", s.MsLevel)
		fmt.Fprintf(&sb, "<cvParam cvRef=\"MS\" accession=\"MS:1000285\" name=\"total ion current\" value=\"%g\"/>\n", s.TIC)
		if len(s.Mz) > 0 {
			best := 0
			for j := range s.Intensity {
				if s.Intensity[j] > s.Intensity[best] {
					best = j
				}
			}
			fmt.Fprintf(&sb, "<cvParam cvRef=\"MS\" accession=\"MS:1000504\" name=\"base peak m/z\" value=\"%g\"/>\n", s.Mz[best])
			fmt.Fprintf(&sb, "<cvParam cvRef=\"MS\" accession=\"MS:1000505\" name=\"base peak intensity\" value=\"%g\"/>\n", s.Intensity[best])
		}
		fmt.Fprintf(&sb, `<scanList count="1"><scan>
<cvParam cvRef="MS" accession="MS:1000016" name="scan start time" value="%g" unitCvRef="UO" unitAccession="UO:0000010" unitName="second"/>
</scan></scanList>
`, s.RetentionTime*60)
		if s.MsLevel == 2 {
			fmt.Fprintf(&sb, `<precursorList count="1"><precursor><isolationWindow>
<cvParam cvRef="MS" accession="MS:1000827" name="isolation window target m/z" value="%g"/>
<cvParam cvRef="MS" accession="MS:1000828" name="isolation window lower offset" value="%g"/>
<cvParam cvRef="MS" accession="MS:1000829" name="isolation window upper offset" value="%g"/>
</isolationWindow></precursor></precursorList>
`, s.TargetMz, s.LowerOffset, s.UpperOffset)
		}
		sb.WriteString("<binaryDataArrayList count=\"2\">\n")
		sb.WriteString(binaryArray(s.Mz, "MS:1000514", compress))
		sb.WriteString(binaryArray(s.Intensity, "MS:1000515", compress))
		sb.WriteString("</binaryDataArrayList>\n</spectrum>\n")
	}
	sb.WriteString("</spectrumList>\n</run>\n</mzML>\n</indexedmzML>\n")
	return []byte(sb.String())
}
