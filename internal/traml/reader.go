// Package traml reads transition libraries in TraML format
package traml

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// decoyPrefix marks decoy proteins
const decoyPrefix = "DECOY"

// uniprotAccession matches UniProt accession numbers
// (https://www.uniprot.org/help/accession_numbers)
var uniprotAccession = regexp.MustCompile(`[OPQ][0-9][A-Z0-9]{3}[0-9]|[A-NR-Z][0-9]([A-Z][A-Z0-9]{2}[0-9]){1,2}`)

// Read reads TraML content from io.reader
func Read(reader io.Reader) (Library, error) {
	var content tramlContent
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&content); err != nil {
		return Library{}, err
	}
	return build(&content)
}

func build(c *tramlContent) (Library, error) {
	var lib Library
	prot2Idx := make(map[string]int, len(c.Proteins))
	decoy2Idx := make(map[string]int)
	seenUniprot := make(map[string]bool)
	for _, p := range c.Proteins {
		if strings.HasPrefix(p.ID, decoyPrefix) {
			decoy2Idx[p.ID] = len(lib.DecoyProteins)
			lib.DecoyProteins = append(lib.DecoyProteins, Protein{ID: p.ID})
			continue
		}
		prot2Idx[p.ID] = len(lib.Proteins)
		lib.Proteins = append(lib.Proteins, Protein{ID: p.ID})
		for _, acc := range UniprotIDs(p.ID) {
			if !seenUniprot[acc] {
				seenUniprot[acc] = true
				lib.UniprotIDs = append(lib.UniprotIDs, acc)
			}
		}
	}

	lib.pepID2Idx = make(map[string]int, len(c.Peptides))
	for _, p := range c.Peptides {
		pep, err := convertPeptide(&p)
		if err != nil {
			return lib, err
		}
		for _, ref := range p.ProteinRefs {
			if i, ok := prot2Idx[ref.Ref]; ok {
				lib.Proteins[i].PeptideIDs = append(lib.Proteins[i].PeptideIDs, p.ID)
			} else if i, ok := decoy2Idx[ref.Ref]; ok {
				lib.DecoyProteins[i].PeptideIDs = append(lib.DecoyProteins[i].PeptideIDs, p.ID)
			} else {
				return lib, fmt.Errorf("%w: peptide %s references %s", ErrUnknownProtein, p.ID, ref.Ref)
			}
		}
		lib.pepID2Idx[p.ID] = len(lib.Peptides)
		lib.Peptides = append(lib.Peptides, pep)
	}

	for _, t := range c.Transitions {
		tr, err := convertTransition(&t)
		if err != nil {
			return lib, err
		}
		i, ok := lib.pepID2Idx[t.PeptideRef]
		if !ok {
			return lib, fmt.Errorf("%w: transition %s references %s", ErrUnknownPeptide, t.ID, t.PeptideRef)
		}
		lib.Peptides[i].TransitionIDs = append(lib.Peptides[i].TransitionIDs, t.ID)
		lib.Transitions = append(lib.Transitions, tr)
	}
	return lib, nil
}

func convertPeptide(p *peptide) (Peptide, error) {
	pep := Peptide{ID: p.ID, Sequence: p.Sequence}
	cvs := p.CvPar
	for _, rt := range p.RetentionTimes {
		cvs = append(cvs, rt.CvPar...)
	}
	for _, cv := range cvs {
		var err error
		switch cv.Accession {
		case "MS:1000041": // charge state
			pep.ChargeState, err = strconv.Atoi(cv.Value)
		case "MS:1000893": // peptide group label
			pep.GroupLabel = cv.Value
		case "MS:1000896": // normalized retention time
			pep.RetentionTime, err = strconv.ParseFloat(cv.Value, 64)
			pep.HasRT = true
		}
		if err != nil {
			return pep, fmt.Errorf("peptide %s: %w", p.ID, err)
		}
	}
	return pep, nil
}

func convertTransition(t *transition) (Transition, error) {
	tr := Transition{ID: t.ID, PeptideID: t.PeptideRef}
	parse := func(cvs []cvParam, product bool) error {
		for _, cv := range cvs {
			var err error
			switch cv.Accession {
			case "MS:1000827": // isolation window target m/z
				if product {
					tr.ProductMz, err = strconv.ParseFloat(cv.Value, 64)
				} else {
					tr.PrecursorMz, err = strconv.ParseFloat(cv.Value, 64)
				}
			case "MS:1000041": // charge state
				if product {
					tr.ProductChargeState, err = strconv.Atoi(cv.Value)
				}
			case "MS:1001226": // product ion intensity
				tr.ProductIonIntensity, err = strconv.ParseFloat(cv.Value, 64)
			}
			if err != nil {
				return fmt.Errorf("transition %s: %w", t.ID, err)
			}
		}
		return nil
	}
	if err := parse(t.Precursor.CvPar, false); err != nil {
		return tr, err
	}
	if err := parse(t.Product.CvPar, true); err != nil {
		return tr, err
	}
	if err := parse(t.CvPar, true); err != nil {
		return tr, err
	}
	return tr, nil
}

// UniprotIDs returns the UniProt accessions contained in a protein id
func UniprotIDs(proteinID string) []string {
	return uniprotAccession.FindAllString(proteinID, -1)
}

// Peptide returns the peptide with the given id
func (l *Library) Peptide(id string) (Peptide, bool) {
	i, ok := l.pepID2Idx[id]
	if !ok {
		return Peptide{}, false
	}
	return l.Peptides[i], true
}

// PeptideTransitions returns the transitions of a peptide in file order
func (l *Library) PeptideTransitions(id string) []Transition {
	var res []Transition
	for _, t := range l.Transitions {
		if t.PeptideID == id {
			res = append(res, t)
		}
	}
	return res
}

// IRTPeptides returns the peptides that have a normalized retention
// time, ordered by that time
func (l *Library) IRTPeptides() []Peptide {
	var res []Peptide
	for _, p := range l.Peptides {
		if p.HasRT {
			res = append(res, p)
		}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].RetentionTime < res[j].RetentionTime })
	return res
}
