package checkout

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/domain"
	"github.com/wornwell/storefront/internal/notify"
)

// Notification messages for address book operations.
const (
	MsgAddressSaved        = "Address saved"
	MsgAddressSaveFailed   = "Could not save address"
	MsgAddressDeleted      = "Address removed"
	MsgAddressDeleteFailed = "Could not remove address"
	MsgDefaultUpdated      = "Default address updated"
	MsgDefaultUpdateFailed = "Could not update default address"
)

// AddressBook orchestrates address CRUD against the commerce API and keeps
// the session's checkout selection consistent with the results.
type AddressBook struct {
	client   commerce.Client
	notifier notify.Notifier
	validate *validator.Validate
	logger   *slog.Logger
}

func NewAddressBook(client commerce.Client, notifier notify.Notifier, logger *slog.Logger) *AddressBook {
	if logger == nil {
		logger = slog.Default()
	}
	return &AddressBook{
		client:   client,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// List fetches the saved addresses and applies the one-time default
// promotion to the selection.
func (b *AddressBook) List(ctx context.Context, sel *Selection) ([]commerce.Address, error) {
	addresses, err := b.client.ListAddresses(ctx)
	if err != nil {
		return nil, domain.Unavailable(err, "addressbook.list", "Unable to load addresses")
	}
	sel.ApplyDefault(addresses)
	return addresses, nil
}

// Create validates and saves a new address. The payload's formatted
// address is derived server-side here rather than trusted from the form.
// A newly created address becomes the shipping selection when nothing is
// selected yet, and a set-default follow-up call is issued when the form
// requested it.
func (b *AddressBook) Create(ctx context.Context, sel *Selection, payload commerce.AddressPayload) (*commerce.Address, error) {
	const op = "addressbook.create"

	if err := b.validatePayload(op, payload); err != nil {
		return nil, err
	}
	payload.FormattedAddress = commerce.FormatAddress(payload)

	created, err := b.client.CreateAddress(ctx, payload)
	if err != nil {
		b.notifyError(err, MsgAddressSaveFailed)
		return nil, domain.WrapError(err, domain.EUNAVAILABLE, op, MsgAddressSaveFailed)
	}

	if sel.ShippingID() == "" {
		sel.SelectShipping(created.ID)
	}

	if payload.IsDefault && !created.IsDefault {
		if err := b.client.SetDefaultAddress(ctx, created.ID); err != nil {
			// The address itself was saved; report only the default flag.
			b.logger.Warn("set default after create failed",
				slog.String("address_id", created.ID),
				slog.String("error", err.Error()))
			b.notifyError(err, MsgDefaultUpdateFailed)
			b.notifier.Notify(notify.Success(MsgAddressSaved))
			return created, nil
		}
		created.IsDefault = true
	}

	b.notifier.Notify(notify.Success(MsgAddressSaved))
	return created, nil
}

// Update edits an existing address. The default flag triggers a follow-up
// set-default call only when it was just turned on; turning it off is not
// supported by the commerce API and is ignored.
func (b *AddressBook) Update(ctx context.Context, addressID string, payload commerce.AddressPayload) error {
	const op = "addressbook.update"

	if err := b.validatePayload(op, payload); err != nil {
		return err
	}
	payload.FormattedAddress = commerce.FormatAddress(payload)

	wasDefault, err := b.isDefault(ctx, addressID)
	if err != nil {
		b.notifyError(err, MsgAddressSaveFailed)
		return wrapUpdateError(err, op)
	}

	if err := b.client.UpdateAddress(ctx, addressID, payload); err != nil {
		b.notifyError(err, MsgAddressSaveFailed)
		return wrapUpdateError(err, op)
	}

	if payload.IsDefault && !wasDefault {
		if err := b.client.SetDefaultAddress(ctx, addressID); err != nil {
			b.logger.Warn("set default after update failed",
				slog.String("address_id", addressID),
				slog.String("error", err.Error()))
			b.notifyError(err, MsgDefaultUpdateFailed)
			b.notifier.Notify(notify.Success(MsgAddressSaved))
			return nil
		}
	}

	b.notifier.Notify(notify.Success(MsgAddressSaved))
	return nil
}

// Delete removes an address and clears any selection slot that pointed at
// it. Deleting an address that is already gone counts as success.
func (b *AddressBook) Delete(ctx context.Context, sel *Selection, addressID string) error {
	const op = "addressbook.delete"

	err := b.client.DeleteAddress(ctx, addressID)
	if err != nil && !errors.Is(err, commerce.ErrAddressNotFound) {
		b.notifyError(err, MsgAddressDeleteFailed)
		return domain.WrapError(err, domain.EUNAVAILABLE, op, MsgAddressDeleteFailed)
	}

	sel.ClearAddress(addressID)
	b.notifier.Notify(notify.Success(MsgAddressDeleted))
	return nil
}

// SetDefault marks an address as the account default.
func (b *AddressBook) SetDefault(ctx context.Context, addressID string) error {
	if err := b.client.SetDefaultAddress(ctx, addressID); err != nil {
		b.notifyError(err, MsgDefaultUpdateFailed)
		return domain.WrapError(err, domain.EUNAVAILABLE, "addressbook.set_default", MsgDefaultUpdateFailed)
	}
	b.notifier.Notify(notify.Success(MsgDefaultUpdated))
	return nil
}

func (b *AddressBook) validatePayload(op string, payload commerce.AddressPayload) error {
	err := b.validate.Struct(payload)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return domain.WrapError(err, domain.EINVALID, op, "invalid address payload")
	}

	var verr error
	for _, fe := range invalid {
		verr = domain.AddFieldError(verr, fieldName(fe), fieldMessage(fe))
	}
	return verr
}

// wrapUpdateError distinguishes an edit of a nonexistent address from a
// remote failure.
func wrapUpdateError(err error, op string) error {
	if errors.Is(err, commerce.ErrAddressNotFound) {
		return domain.WrapError(err, domain.ENOTFOUND, op, "Address not found")
	}
	return domain.WrapError(err, domain.EUNAVAILABLE, op, MsgAddressSaveFailed)
}

func (b *AddressBook) isDefault(ctx context.Context, addressID string) (bool, error) {
	addresses, err := b.client.ListAddresses(ctx)
	if err != nil {
		return false, err
	}
	for _, addr := range addresses {
		if addr.ID == addressID {
			return addr.IsDefault, nil
		}
	}
	return false, commerce.ErrAddressNotFound
}

func (b *AddressBook) notifyError(err error, fallback string) {
	msg := commerce.ErrorMessage(err)
	if msg == "" {
		msg = fallback
	}
	b.notifier.Notify(notify.Error(msg))
}

// fieldName maps a struct field to the form field name the client knows.
func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "FullName":
		return "fullName"
	case "AddressLine1":
		return "addressLine1"
	case "AddressLine2":
		return "addressLine2"
	case "City":
		return "city"
	case "State":
		return "state"
	case "PostalCode":
		return "postalCode"
	case "Country":
		return "country"
	case "Phone":
		return "phone"
	default:
		return fe.Field()
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "iso3166_1_alpha2":
		return "Must be a two-letter country code"
	case "max":
		return "Too long"
	default:
		return "Invalid value"
	}
}
