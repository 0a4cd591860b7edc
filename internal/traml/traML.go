package traml

import (
	"encoding/xml"
	"errors"
)

// Types for parsing TraML

// Library holds the proteins, peptides and transitions of a TraML file.
// Entities keep the order of the file.
type Library struct {
	Proteins      []Protein
	DecoyProteins []Protein
	Peptides      []Peptide
	Transitions   []Transition
	UniprotIDs    []string // distinct, in order of first appearance

	pepID2Idx map[string]int
}

// Protein is a target or decoy protein
type Protein struct {
	ID         string
	PeptideIDs []string
}

// Peptide is a library peptide with its transitions
type Peptide struct {
	ID            string
	Sequence      string
	ChargeState   int
	GroupLabel    string
	RetentionTime float64 // normalized retention time
	HasRT         bool
	TransitionIDs []string
}

// Transition is a precursor/product ion pair
type Transition struct {
	ID                  string
	PeptideID           string
	PrecursorMz         float64
	ProductMz           float64
	ProductChargeState  int
	ProductIonIntensity float64
}

type tramlContent struct {
	XMLName     xml.Name     `xml:"TraML"`
	Proteins    []protein    `xml:"ProteinList>Protein"`
	Peptides    []peptide    `xml:"CompoundList>Peptide"`
	Transitions []transition `xml:"TransitionList>Transition"`
}

type protein struct {
	ID string `xml:"id,attr"`
}

type peptide struct {
	ID          string    `xml:"id,attr"`
	Sequence    string    `xml:"sequence,attr"`
	CvPar       []cvParam `xml:"cvParam"`
	ProteinRefs []struct {
		Ref string `xml:"ref,attr"`
	} `xml:"ProteinRef"`
	RetentionTimes []struct {
		CvPar []cvParam `xml:"cvParam"`
	} `xml:"RetentionTimeList>RetentionTime"`
}

type transition struct {
	ID         string `xml:"id,attr"`
	PeptideRef string `xml:"peptideRef,attr"`
	Precursor  struct {
		CvPar []cvParam `xml:"cvParam"`
	} `xml:"Precursor"`
	Product struct {
		CvPar []cvParam `xml:"cvParam"`
	} `xml:"Product"`
	CvPar []cvParam `xml:"cvParam"`
}

type cvParam struct {
	Accession string `xml:"accession,attr"`
	Name      string `xml:"name,attr"`
	Value     string `xml:"value,attr"`
}

var (
	// ErrUnknownProtein means a peptide references a protein that is not in the file
	ErrUnknownProtein = errors.New("TraML: unknown protein reference")
	// ErrUnknownPeptide means a transition references a peptide that is not in the file
	ErrUnknownPeptide = errors.New("TraML: unknown peptide reference")
)
