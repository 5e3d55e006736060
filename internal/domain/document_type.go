package domain

import "strings"

// DocumentType is the label returned by document classification.
type DocumentType string

const (
	DocumentTypeHealthInsurance    DocumentType = "Health Insurance"
	DocumentTypeLifeInsurance      DocumentType = "Life Insurance"
	DocumentTypeLegalDeed          DocumentType = "Legal Deed"
	DocumentTypeRentalAgreement    DocumentType = "Rental Agreement"
	DocumentTypeAcademicPolicy     DocumentType = "Academic Policy"
	DocumentTypeFinancialStatement DocumentType = "Financial Statement"
)

// DocumentTypes is the closed set of labels offered to the classifier, in
// prompt order.
var DocumentTypes = []DocumentType{
	DocumentTypeHealthInsurance,
	DocumentTypeLifeInsurance,
	DocumentTypeLegalDeed,
	DocumentTypeRentalAgreement,
	DocumentTypeAcademicPolicy,
	DocumentTypeFinancialStatement,
}

// Known reports whether t matches one of the fixed labels, ignoring case
// and surrounding whitespace.
func (t DocumentType) Known() bool {
	s := strings.TrimSpace(string(t))
	for _, known := range DocumentTypes {
		if strings.EqualFold(s, string(known)) {
			return true
		}
	}
	return false
}

// DocumentTypeLabels returns the fixed labels joined for prompt text.
func DocumentTypeLabels() string {
	labels := make([]string, len(DocumentTypes))
	for i, t := range DocumentTypes {
		labels[i] = string(t)
	}
	return strings.Join(labels, ", ")
}
