package entity

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/claim-lifecycle/internal/domain/workflow"
)

var validate *validator.Validate

var fieldValidators = map[string]func(validator.FieldLevel) bool{
	"claimstatus": validateClaimStatus,
	"actorrole":   validateActorRole,
}

func init() {
	validate = validator.New()
	for tag, fn := range fieldValidators {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register validation for %s: %v", tag, err))
		}
	}
	validate.RegisterStructValidation(claimStructLevelValidation, Claim{})
	validate.RegisterStructValidation(lineItemStructLevelValidation, LineItem{})
}

// Validator returns the shared instance with the domain tags registered.
func Validator() *validator.Validate {
	return validate
}

// Validate checks v against its struct tags and flattens the failures into one error.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.StructNamespace(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

func validateClaimStatus(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(workflow.State); ok {
		return value.IsValid()
	}
	return false
}

func validateActorRole(field validator.FieldLevel) bool {
	if value, ok := field.Field().Interface().(Role); ok {
		return value.IsValid()
	}
	return false
}

func claimStructLevelValidation(sl validator.StructLevel) {
	claim := sl.Current().Interface().(Claim)
	if !claim.TotalsConsistent() {
		sl.ReportError(claim.TotalAmountCents, "TotalAmountCents", "total_amount_cents", "totals", "")
	}
	if claim.Status == workflow.StateSettled && claim.ManagerID == nil {
		sl.ReportError(claim.ManagerID, "ManagerID", "manager_id", "required_when_settled", "")
	}
	if claim.PaymentProcessed && claim.Status != workflow.StateSettled {
		sl.ReportError(claim.PaymentProcessed, "PaymentProcessed", "payment_processed", "settled_only", "")
	}
}

func lineItemStructLevelValidation(sl validator.StructLevel) {
	item := sl.Current().Interface().(LineItem)
	if item.ActivityDate.IsZero() {
		sl.ReportError(item.ActivityDate, "ActivityDate", "activity_date", "required", "")
	}
}
