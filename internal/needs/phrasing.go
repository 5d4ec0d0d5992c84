package needs

import "github.com/sells-group/appraisal-engine/internal/model"

// marksPhrasing asks for the maker's mark photo in the language of each
// domain. The table is total over model.AllDomainCategories; a test asserts
// totality so the "missing domain" case cannot arise at runtime.
var marksPhrasing = map[model.DomainCategory]string{
	model.DomainFurniture:   "Can you photograph any labels, stamps, or maker's marks? Check inside drawers, on the underside, and on the back panels.",
	model.DomainCeramics:    "Can you photograph the maker's mark on the base? Pottery and porcelain marks are usually on the underside.",
	model.DomainGlass:       "Can you photograph any etched or acid-stamped signature? Check the base and the lower side walls.",
	model.DomainSilver:      "Can you photograph the hallmarks? Look for small stamped symbols, usually near the rim or on the underside.",
	model.DomainJewelry:     "Can you photograph any stamps inside the band or on the clasp? Look for purity marks and maker's stamps.",
	model.DomainWatches:     "Can you photograph the case back and, if accessible, the movement? Serial and reference numbers matter most.",
	model.DomainArt:         "Can you photograph the signature up close, and any gallery labels or inscriptions on the back?",
	model.DomainTextiles:    "Can you photograph any woven labels or tags? Check seams, hems, and the reverse side.",
	model.DomainToys:        "Can you photograph any maker's stamps or country-of-origin marks? Check the underside and battery compartments.",
	model.DomainBooks:       "Can you photograph the title page, the copyright page, and any edition markings?",
	model.DomainTools:       "Can you photograph any stamped maker's names or patent dates on the metal parts?",
	model.DomainLighting:    "Can you photograph any stamps or labels on the base, the socket hardware, or the shade rim?",
	model.DomainElectronics: "Can you photograph the model and serial plates, usually on the back or underside?",
	model.DomainVehicles:    "Can you photograph the serial or VIN plates and any badges or manufacturer emblems?",
	model.DomainGeneral:     "Can you photograph any marks, signatures, labels, or stamps you can find on the item?",
}

// marksFor returns the marks-photo request phrasing for a domain, falling
// back to the general phrasing for anything outside the taxonomy.
func marksFor(domain model.DomainCategory) string {
	return marksPhrasing[domain.Normalize()]
}

// undersideDomains are categories where the base or underside carries the
// most identifying detail.
var undersideDomains = map[model.DomainCategory]bool{
	model.DomainFurniture: true,
	model.DomainCeramics:  true,
	model.DomainGlass:     true,
	model.DomainSilver:    true,
	model.DomainToys:      true,
	model.DomainLighting:  true,
}

// reverseDomains are categories where the back or reverse side carries
// construction and attribution evidence.
var reverseDomains = map[model.DomainCategory]bool{
	model.DomainArt:       true,
	model.DomainFurniture: true,
	model.DomainTextiles:  true,
}

// measurableDomains are categories where physical dimensions meaningfully
// narrow the identification.
var measurableDomains = map[model.DomainCategory]bool{
	model.DomainFurniture: true,
	model.DomainTextiles:  true,
	model.DomainCeramics:  true,
}
