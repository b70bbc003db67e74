package controllers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetshop-backend/api/responses"
	"github.com/angelmondragon/fleetshop-backend/api/validators"
	"github.com/angelmondragon/fleetshop-backend/internal/imports"
	"github.com/angelmondragon/fleetshop-backend/internal/parts"
	"github.com/angelmondragon/fleetshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fleetshop-backend/pkg/errors"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

const invoiceFormMemory = 8 << 20

// PartList returns parts narrowed by the category, below_threshold, vehicle_id
// and in_stock query parameters.
func PartList(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part"))
			return
		}
		filter, err := parsePartFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parsePartFilter(r *http.Request) (parts.ListFilter, error) {
	query := r.URL.Query()
	filter := parts.ListFilter{Category: strings.TrimSpace(query.Get("category"))}
	var err error
	if filter.BelowThreshold, err = validators.ParseQueryBool(r, "below_threshold"); err != nil {
		return filter, err
	}
	if filter.InStock, err = validators.ParseQueryBool(r, "in_stock"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(query.Get("vehicle_id")); raw != "" {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid vehicle_id")
		}
		filter.VehicleID = &id
	}
	return filter, nil
}

func PartGet(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part"))
			return
		}
		id, err := uuidParam(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func PartCreate(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part"))
			return
		}
		var body parts.CreatePartInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, part)
	}
}

func PartUpdate(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part"))
			return
		}
		id, err := uuidParam(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body parts.UpdatePartInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func PartDelete(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part"))
			return
		}
		id, err := uuidParam(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PartAttachInvoice accepts a multipart form with a "file" part and an
// optional "invoice_number" field.
func PartAttachInvoice(svc parts.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part"))
			return
		}
		id, err := uuidParam(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes+invoiceFormMemory)
		}
		if err := r.ParseMultipartForm(invoiceFormMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required"))
			return
		}
		defer file.Close()

		upload := parts.InvoiceUpload{
			Filename: header.Filename,
			Size:     header.Size,
			Body:     file,
		}
		if number := strings.TrimSpace(r.FormValue("invoice_number")); number != "" {
			upload.Number = &number
		}

		part, err := svc.AttachInvoice(r.Context(), id, upload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func PartInvoiceURL(svc parts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part"))
			return
		}
		id, err := uuidParam(r, "partID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		url, err := svc.InvoiceURL(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"url": url})
	}
}

type partCreator interface {
	Create(ctx context.Context, part *models.Part) (*models.Part, error)
}

// PartImport loads parts from a CSV request body. ?dry_run=true validates
// without writing.
func PartImport(repo partCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("part import"))
			return
		}
		dryRun, err := validators.ParseQueryBool(r, "dry_run")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer io.Copy(io.Discard, r.Body)

		result, err := imports.ImportParts(r.Context(), r.Body, repo, dryRun)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid csv"))
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"parsed":   result.Parsed,
				"created":  result.Created,
				"rejected": len(result.Rejected),
				"dry_run":  result.DryRun,
			})
			logg.Info(ctx, "parts.import.completed")
		}
		responses.WriteSuccess(w, result)
	}
}
