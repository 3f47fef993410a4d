package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/cue-club/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

type createDrawInput struct {
	Participants []string `json:"participants"`
}

type recordWinnerInput struct {
	Player string `json:"player"`
}

type regenerateInput struct {
	Round int `json:"round"`
}

type editWinnerInput struct {
	Winner string `json:"winner"`
}

// GetBracket godoc
// @Summary Получить сетку турнира
// @Tags brackets
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{} "Текущая сетка"
// @Failure 404 {object} map[string]string "Сетка не найдена"
// @Router /tournaments/{tournamentID}/bracket [get]
func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.bracketService.GetBracket(r.Context(), id)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// CreateDraw godoc
// @Summary Жеребьевка первого раунда
// @Tags brackets
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body createDrawInput true "Список участников"
// @Success 201 {object} map[string]interface{} "Сетка создана"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 409 {object} map[string]string "Сетка уже существует"
// @Failure 503 {object} map[string]interface{} "Сетка не сохранена"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket [post]
func (h *BracketHandler) CreateDraw(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input createDrawInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.Participants) == 0 {
		badRequestResponse(w, r, errors.New("participants are required"))
		return
	}

	view, err := h.bracketService.CreateDraw(r.Context(), id, input.Participants)
	writeBracketResult(w, r, http.StatusCreated, view, err)
}

// RecordWinner godoc
// @Summary Записать победителя матча текущего раунда
// @Tags brackets
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param matchIndex path int true "Match index"
// @Param body body recordWinnerInput true "Победитель"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Матч не найден"
// @Failure 409 {object} map[string]string "Операция недопустима"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/matches/{matchIndex}/winner [post]
func (h *BracketHandler) RecordWinner(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchIndex, err := getIntFromURL(r, "matchIndex")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input recordWinnerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.RecordWinner(r.Context(), id, matchIndex, input.Player)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// ResetMatch godoc
// @Summary Сбросить результат матча
// @Tags brackets
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param matchIndex path int true "Match index"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Матч не найден"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/matches/{matchIndex}/winner [delete]
func (h *BracketHandler) ResetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchIndex, err := getIntFromURL(r, "matchIndex")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.ResetMatch(r.Context(), id, matchIndex)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// AdvanceRound godoc
// @Summary Завершить раунд
// @Description Переносит раунд в историю и формирует пары следующего, либо объявляет чемпиона.
// @Tags brackets
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Раунд не завершен"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/advance [post]
func (h *BracketHandler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.bracketService.AdvanceRound(r.Context(), id)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// RollbackLastRound godoc
// @Summary Откатить последний раунд
// @Tags brackets
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Нечего откатывать"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/rollback [post]
func (h *BracketHandler) RollbackLastRound(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.bracketService.RollbackLastRound(r.Context(), id)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// RegenerateFrom godoc
// @Summary Пересобрать сетку после раунда
// @Description Удаляет все пары после указанного раунда и заново формирует следующий раунд. Необратимо.
// @Tags brackets
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body regenerateInput true "Номер раунда"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Раунд не найден"
// @Failure 409 {object} map[string]string "Раунд еще идет"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/regenerate [post]
func (h *BracketHandler) RegenerateFrom(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input regenerateInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.RegenerateFrom(r.Context(), id, input.Round)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// EditHistoricalWinner godoc
// @Summary Исправить победителя завершенного матча
// @Description Последующие раунды не пересчитываются; затронутые раунды возвращаются в stale_rounds.
// @Tags brackets
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param round path int true "Round number"
// @Param matchIndex path int true "Match index"
// @Param body body editWinnerInput true "Новый победитель"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Раунд или матч не найден"
// @Failure 409 {object} map[string]string "Операция недопустима"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/history/{round}/matches/{matchIndex}/winner [put]
func (h *BracketHandler) EditHistoricalWinner(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	round, err := getIntFromURL(r, "round")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	matchIndex, err := getIntFromURL(r, "matchIndex")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input editWinnerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.EditHistoricalWinner(r.Context(), id, round, matchIndex, input.Winner)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// Save godoc
// @Summary Повторить сохранение сетки
// @Tags brackets
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{} "Хранилище недоступно"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/save [post]
func (h *BracketHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.bracketService.Save(r.Context(), id)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// StartReveal godoc
// @Summary Показать жеребьевку следующего раунда
// @Description Пары показываются по одной через WebSocket; сетка меняется только после показа последней пары.
// @Tags brackets
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 202 {object} services.RevealStarted
// @Failure 409 {object} map[string]string "Раунд не завершен или показ уже идет"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/reveal [post]
func (h *BracketHandler) StartReveal(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	started, err := h.bracketService.StartReveal(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPersistenceFailure) && started != nil {
			persistenceFailureResponse(w, r, err, started.Bracket)
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusAccepted
	if started.RevealID == "" {
		// финал: чемпион объявлен сразу
		status = http.StatusOK
	}
	if err := writeJSON(w, status, started, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CancelReveal godoc
// @Summary Остановить показ жеребьевки
// @Tags brackets
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Показ не идет"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket/reveal [delete]
func (h *BracketHandler) CancelReveal(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.bracketService.CancelReveal(r.Context(), id)
	writeBracketResult(w, r, http.StatusOK, view, err)
}

// DeleteBracket godoc
// @Summary Удалить сетку турнира
// @Description Удаляет сохраненную сетку и ее архив. Необратимо.
// @Tags brackets
// @Param tournamentID path string true "Tournament ID"
// @Success 204 "Сетка удалена"
// @Failure 404 {object} map[string]string "Сетка не найдена"
// @Failure 409 {object} map[string]string "Идет показ жеребьевки"
// @Failure 503 {object} map[string]string "Хранилище недоступно"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/bracket [delete]
func (h *BracketHandler) DeleteBracket(w http.ResponseWriter, r *http.Request) {
	id, err := getTournamentID(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.bracketService.DeleteBracket(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent) // Успешное удаление
}
