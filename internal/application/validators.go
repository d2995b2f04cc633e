package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-ahp/infrastructure/units"
	"github.com/ahrav/go-ahp/internal/domain"
)

// newValidator returns a validator with the engine's custom tags registered.
func newValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return v, nil
}

// registerCustomValidators registers domain-specific validation functions
// with the validator instance: semver, ahpmethod and ritable.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	if err := v.RegisterValidation("ahpmethod", validateMethod); err != nil {
		return fmt.Errorf("failed to register ahpmethod validator: %w", err)
	}
	if err := v.RegisterValidation("ritable", validateRandomIndexTable); err != nil {
		return fmt.Errorf("failed to register ritable validator: %w", err)
	}
	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	if err != nil || n != 3 || major < 0 || minor < 0 || patch < 0 {
		return false
	}
	// Sscanf stops at the last verb; reject trailing garbage such as "1.2.3x".
	return fmt.Sprintf("%d.%d.%d", major, minor, patch) == value
}

// validateMethod accepts the supported weight derivation methods.
func validateMethod(fl validator.FieldLevel) bool {
	return domain.Method(fl.Field().String()).Valid()
}

// validateRandomIndexTable accepts the names of the bundled RI tables.
func validateRandomIndexTable(fl validator.FieldLevel) bool {
	return units.IsRandomIndexTable(fl.Field().String())
}

// validateInput checks a criterion set before any evaluator runs.
func validateInput(v *validator.Validate, in CriterionSetInput) error {
	if err := v.Struct(in); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidComparison, err)
	}

	seen := make(map[string]struct{}, len(in.Evaluators))
	for _, ev := range in.Evaluators {
		if _, dup := seen[ev.EvaluatorID]; dup {
			return domain.NewInvalidComparisonError(-1, -1,
				fmt.Sprintf("duplicate evaluator %q in criterion set %q", ev.EvaluatorID, in.ID))
		}
		seen[ev.EvaluatorID] = struct{}{}
	}
	return nil
}
