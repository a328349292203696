package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wellbeingchat/backend/internal/model/profile"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	profileService "github.com/wellbeingchat/backend/internal/service/profile"
	"github.com/wellbeingchat/backend/internal/service/reminder"
	"github.com/wellbeingchat/backend/pkg/utils"
)

// Handler 紧急联系人与处方的HTTP处理器
type Handler struct {
	profileSvc *profileService.Service
}

// New 创建档案处理器
func New(profileSvc *profileService.Service) *Handler {
	return &Handler{profileSvc: profileSvc}
}

// RegisterRoutes 注册联系人与处方路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", h.handleListContacts)
		r.Post("/", h.handleAddContact)
		r.Put("/{id}", h.handleUpdateContact)
		r.Delete("/{id}", h.handleRemoveContact)
	})

	r.Route("/prescriptions", func(r chi.Router) {
		r.Get("/", h.handleListPrescriptions)
		r.Post("/", h.handleAddPrescription)
		r.Put("/{id}", h.handleUpdatePrescription)
		r.Delete("/{id}", h.handleRemovePrescription)
		r.Put("/{id}/file", h.handleAttachFile)
		r.Post("/{id}/reminder", h.handleSetReminder)
		r.Delete("/{id}/reminder", h.handleCancelReminder)
	})
}

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	contacts, err := h.profileSvc.Contacts(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, contacts)
}

func (h *Handler) handleAddContact(w http.ResponseWriter, r *http.Request) {
	var payload profileService.ContactInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, _ := authService.FromContext(r.Context())
	contact, err := h.profileSvc.AddContact(r.Context(), session.ProfileID, payload)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, contact)
}

func (h *Handler) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var payload profileService.ContactInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, _ := authService.FromContext(r.Context())
	contact, err := h.profileSvc.UpdateContact(r.Context(), session.ProfileID, chi.URLParam(r, "id"), payload)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, contact)
}

func (h *Handler) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	if err := h.profileSvc.RemoveContact(r.Context(), session.ProfileID, chi.URLParam(r, "id")); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListPrescriptions(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	items, err := h.profileSvc.Prescriptions(r.Context(), session.ProfileID)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAddPrescription(w http.ResponseWriter, r *http.Request) {
	var payload profileService.PrescriptionInput
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &payload); err != nil {
			utils.RespondServiceError(w, err)
			return
		}
	}

	session, _ := authService.FromContext(r.Context())
	item, err := h.profileSvc.AddPrescription(r.Context(), session.ProfileID, payload)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdatePrescription(w http.ResponseWriter, r *http.Request) {
	var payload profileService.PrescriptionInput
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, _ := authService.FromContext(r.Context())
	item, err := h.profileSvc.UpdatePrescription(r.Context(), session.ProfileID, chi.URLParam(r, "id"), payload)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

func (h *Handler) handleRemovePrescription(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	if err := h.profileSvc.RemovePrescription(r.Context(), session.ProfileID, chi.URLParam(r, "id")); err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAttachFile(w http.ResponseWriter, r *http.Request) {
	var payload profile.FileMeta
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondServiceError(w, err)
		return
	}

	session, _ := authService.FromContext(r.Context())
	item, err := h.profileSvc.AttachFile(r.Context(), session.ProfileID, chi.URLParam(r, "id"), payload)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

func (h *Handler) handleSetReminder(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	item, err := h.profileSvc.SetReminder(r.Context(), session.ProfileID, chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}

// handleCancelReminder 取消提醒，reminderId 查询参数为空时取消当前提醒
func (h *Handler) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	session, _ := authService.FromContext(r.Context())
	handle := reminder.Handle(r.URL.Query().Get("reminderId"))
	canceled, err := h.profileSvc.CancelReminder(r.Context(), session.ProfileID, chi.URLParam(r, "id"), handle)
	if err != nil {
		utils.RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"canceled": canceled})
}
