package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/engines"
	"github.com/yungbote/shiftsleep-backend/internal/http/response"
	"github.com/yungbote/shiftsleep-backend/internal/platform/apierr"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/services"
)

// EngineHandler exposes the three engines. Engine outcomes, including
// missing data, are always 200; only malformed query values are 400.
type EngineHandler struct {
	sleep    services.SleepCalculator
	caffeine services.CaffeineCalculator
	fatigue  services.FatigueCalculator
}

func NewEngineHandler(sleep services.SleepCalculator, caffeine services.CaffeineCalculator, fatigue services.FatigueCalculator) *EngineHandler {
	return &EngineHandler{sleep: sleep, caffeine: caffeine, fatigue: fatigue}
}

// GET /api/engines/shift-to-sleep
func (h *EngineHandler) ShiftToSleep(c *gin.Context) {
	duration, err := queryFloat(c, "sleepDurationHours")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	buffer, err := queryInt(c, "bufferMinutes")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	force, err := queryBool(c, "forceRefresh", false)
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	ctx := c.Request.Context()
	response.RespondOK(c, h.sleep.Calculate(ctx, engines.SleepRequest{
		UserID:             ctxutil.UserID(ctx),
		TargetDate:         c.Query("targetDate"),
		SleepDurationHours: duration,
		BufferMinutes:      buffer,
		ForceRefresh:       force,
	}))
}

// GET /api/engines/caffeine-cutoff
func (h *EngineHandler) CaffeineCutoff(c *gin.Context) {
	amount, err := queryFloat(c, "caffeineAmountMg")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	halfLife, err := queryFloat(c, "halfLifeHours")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	threshold, err := queryFloat(c, "safeThresholdMg")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	force, err := queryBool(c, "forceRefresh", false)
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	ctx := c.Request.Context()
	response.RespondOK(c, h.caffeine.Calculate(ctx, engines.CaffeineRequest{
		UserID:           ctxutil.UserID(ctx),
		TargetDate:       c.Query("targetDate"),
		TargetSleepTime:  c.Query("targetSleepTime"),
		CaffeineAmountMg: amount,
		HalfLifeHours:    halfLife,
		SafeThresholdMg:  threshold,
		ForceRefresh:     force,
	}))
}

// GET /api/engines/caffeine-cutoff/beverages
func (h *EngineHandler) Beverages(c *gin.Context) {
	response.RespondOK(c, gin.H{"beverages": engines.Beverages()})
}

// GET /api/engines/fatigue-risk
func (h *EngineHandler) FatigueRisk(c *gin.Context) {
	days, err := queryInt(c, "daysToAnalyze")
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	prediction, err := queryBool(c, "includePrediction", true)
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	force, err := queryBool(c, "forceRefresh", false)
	if err != nil {
		response.RespondAPIError(c, apierr.BadRequest(err))
		return
	}
	ctx := c.Request.Context()
	response.RespondOK(c, h.fatigue.Calculate(ctx, engines.FatigueRequest{
		UserID:            ctxutil.UserID(ctx),
		TargetDate:        c.Query("targetDate"),
		DaysToAnalyze:     days,
		IncludePrediction: prediction,
		ForceRefresh:      force,
	}))
}
