package cron

import (
	"net/http"

	"github.com/chronobill/chronobill/internal/logger"
	"github.com/chronobill/chronobill/internal/service"
	"github.com/gin-gonic/gin"
)

// SchedulerHandler exposes the scheduler to external cron triggers. The
// endpoint is safe to fire from overlapping crons: concurrent runs contend
// on the generation ledger, not on each other.
type SchedulerHandler struct {
	schedulerService service.SchedulerService
	logger           *logger.Logger
}

func NewSchedulerHandler(schedulerService service.SchedulerService, logger *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		schedulerService: schedulerService,
		logger:           logger,
	}
}

// @Summary Run the billing scheduler once
// @Description Execute one scheduler pass over all due plans
// @Tags Cron
// @Produce json
// @Success 200 {object} dto.SchedulerRunResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /cron/scheduler/run [post]
func (h *SchedulerHandler) RunOnce(c *gin.Context) {
	h.logger.Infow("starting scheduler run via cron endpoint")

	resp, err := h.schedulerService.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Errorw("scheduler run failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
