package loader

// PolicyDoc is one preloaded policy document.
type PolicyDoc struct {
	// Title is the unique human-readable title.
	Title string
	// Category is the policy category slug.
	Category string
	// Department is the owning department slug.
	Department string
	// Content is the full policy text.
	Content string
}

// FAQ is one preloaded frequently-asked question. FAQs are ingested as small
// documents so they participate in retrieval like any policy.
type FAQ struct {
	// Question is the question text.
	Question string
	// Answer is the canonical answer text.
	Answer string
	// Category is the policy category the question belongs to.
	Category string
	// Department is the owning department slug.
	Department string
}

// Category and department slugs used by the preloaded corpus. Slugs are
// stable identifiers; display names are a client concern.
const (
	CategoryBenefits     = "beneficios"
	CategoryVacation     = "vacaciones"
	CategoryRemoteWork   = "trabajo_remoto"
	CategoryDevelopment  = "desarrollo"
	CategoryDiversity    = "diversidad"
	CategoryCompensation = "compensacion"
	CategoryEthics       = "etica"

	DepartmentHR      = "rrhh"
	DepartmentLegal   = "legal"
	DepartmentIT      = "it"
	DepartmentFinance = "finanzas"
)

// preloadedPolicies is the built-in HR policy corpus.
var preloadedPolicies = []PolicyDoc{
	{
		Title:      "Health Benefits Policy",
		Category:   CategoryBenefits,
		Department: DepartmentHR,
		Content: `HEALTH BENEFITS POLICY

1. COMPREHENSIVE MEDICAL COVERAGE
The company provides full medical coverage for all full-time employees and their families:
- Medical insurance with 100% of premiums covered for employees.
- Family coverage available with an employee contribution.
- Nationwide network of first-class medical providers.
- International coverage for business travel.

2. PREVENTIVE SERVICES
- Free annual medical check-ups.
- Vaccinations and preventive screenings.
- On-site wellness programs and campus medical clinics.

3. MENTAL HEALTH AND WELLBEING
- Full mental health coverage, including therapy and counseling sessions.
- Employee assistance program (EAP) available 24/7.
- Mindfulness and meditation app subscriptions.

4. ADDITIONAL BENEFITS
- Dental and vision insurance included.
- Prescription drug coverage.
- Fertility and maternity programs.
- Dependent care and eldercare support.

5. ENROLLMENT
- Annual open enrollment period runs every November.
- Qualifying life events allow special enrollment.
- Benefits are managed through the online HR portal; the benefits team answers questions at benefits@alphas.example.`,
	},
	{
		Title:      "401(k) Retirement Plan",
		Category:   CategoryBenefits,
		Department: DepartmentHR,
		Content: `401(k) RETIREMENT PLAN

1. ELIGIBILITY
All employees are eligible from their first day of employment. Enrollment is automatic at a 3% contribution rate unless the employee opts out.

2. COMPANY MATCHING
The company matches 50% of employee contributions up to the first 6% of salary. Matching contributions vest immediately — there is no vesting schedule.

3. CONTRIBUTION LIMITS
Employees may contribute up to the annual IRS limit. Catch-up contributions are available for employees aged 50 and over.

4. INVESTMENT OPTIONS
More than 20 investment options are available, including target-date funds, index funds, and a self-directed brokerage window. Default investment is the age-appropriate target-date fund.

5. LOANS AND WITHDRAWALS
Plan loans of up to 50% of the vested balance are permitted. Hardship withdrawals follow IRS rules and require approval from the plan administrator.`,
	},
	{
		Title:      "Flexible Time Off Policy",
		Category:   CategoryVacation,
		Department: DepartmentHR,
		Content: `FLEXIBLE TIME OFF POLICY

1. PHILOSOPHY
The company operates a flexible time off model: there is no fixed annual cap on vacation days. Employees are encouraged to take at least three weeks of vacation per year to rest and recharge.

2. REQUESTING TIME OFF
- Requests are submitted through the HR portal and approved by the direct manager.
- Requests of two weeks or longer should be submitted at least one month in advance.
- Managers may not deny time off without a documented business reason.

3. SICK LEAVE
Sick leave is separate from vacation and does not require advance notice. Absences longer than three consecutive days require a medical certificate.

4. PUBLIC HOLIDAYS
The company observes all national public holidays. Employees working across regions follow the holiday calendar of their contracting country.

5. PARENTAL LEAVE
Primary caregivers receive 24 weeks of fully paid leave; secondary caregivers receive 12 weeks. Leave may be split within the first year after birth or adoption.`,
	},
	{
		Title:      "Hybrid Work Policy",
		Category:   CategoryRemoteWork,
		Department: DepartmentHR,
		Content: `HYBRID WORK POLICY

1. WORK MODEL
The standard model is hybrid: three days per week in the office and two days remote. Teams choose their common in-office days to maximise collaboration.

2. FULL REMOTE OPTION
Fully remote arrangements are available with special approval from the department head and HR. Approval considers role requirements, performance history, and time-zone overlap with the team.

3. REMOTE WORK REQUIREMENTS
- A secure VPN connection is mandatory for all remote access to company systems.
- Company equipment must be used for work; personal devices require IT approval.
- Employees must be reachable during core collaboration hours (10:00-16:00 local time).

4. HOME OFFICE STIPEND
A one-time stipend of $1,000 is available for home office setup, plus $50 per month for connectivity costs.

5. RELOCATION
Working from another country for more than 30 days per year requires prior approval from HR and Legal due to tax and employment-law implications.`,
	},
	{
		Title:      "Professional Development Program",
		Category:   CategoryDevelopment,
		Department: DepartmentHR,
		Content: `PROFESSIONAL DEVELOPMENT PROGRAM

1. ANNUAL LEARNING BUDGET
Every employee has an annual budget of $3,000 for professional development. The budget covers courses, certifications, books, and conference attendance.

2. APPROVAL PROCESS
Expenses under $500 need only manager approval. Larger expenses require a short growth-plan justification reviewed by HR.

3. INTERNAL PROGRAMS
- Mentorship program pairing junior and senior employees.
- Internal tech talks and brown-bag sessions every week.
- Leadership development track for aspiring managers.

4. EDUCATION ASSISTANCE
Tuition reimbursement of up to $10,000 per year is available for degree programs related to the employee's current or next role, with a one-year retention commitment.

5. CONFERENCE POLICY
Employees may attend up to two external conferences per year on company time. Speaking at a conference does not count against this limit.`,
	},
	{
		Title:      "Diversity and Inclusion Policy",
		Category:   CategoryDiversity,
		Department: DepartmentHR,
		Content: `DIVERSITY AND INCLUSION POLICY

1. COMMITMENT
The company is committed to building a workforce that reflects the diversity of the communities we serve. Hiring, promotion, and compensation decisions are made without regard to race, gender, age, religion, disability, sexual orientation, or national origin.

2. INCLUSIVE HIRING
- Diverse interview panels are required for all roles.
- Job descriptions are reviewed for biased language before posting.
- Structured interviews with consistent scoring rubrics.

3. EMPLOYEE RESOURCE GROUPS
Employee resource groups (ERGs) are funded and supported by the company. Each ERG receives an annual budget and executive sponsorship.

4. ACCESSIBILITY
All offices and digital tools must meet accessibility standards. Reasonable accommodations are provided through a confidential HR process.

5. REPORTING
Concerns about discrimination or exclusion can be raised with HR, through the anonymous ethics hotline, or with any member of management. Retaliation against reporters is grounds for termination.`,
	},
	{
		Title:      "Compensation Structure",
		Category:   CategoryCompensation,
		Department: DepartmentHR,
		Content: `COMPENSATION STRUCTURE

1. PAY PHILOSOPHY
Compensation targets the 75th percentile of the market for each role and location. Salary bands are reviewed annually against industry benchmark data.

2. SALARY BANDS
Every role maps to a level with a published salary band. Employees can see their own band and the criteria for the next level in the HR portal.

3. ANNUAL REVIEW CYCLE
Compensation is reviewed once per year in March. Off-cycle adjustments are possible for promotions or significant market movements.

4. BONUS AND EQUITY
- Annual bonus target of 10-20% of base salary depending on level.
- Equity grants for all employees, with refresh grants based on performance.
- Equity vests over four years with a one-year cliff.

5. PAY EQUITY
A pay equity analysis is run twice per year. Unexplained gaps are corrected immediately and reported to the board.`,
	},
	{
		Title:      "Code of Conduct",
		Category:   CategoryEthics,
		Department: DepartmentLegal,
		Content: `CODE OF CONDUCT

1. GENERAL PRINCIPLES
Employees must act with honesty and integrity in all business dealings. The code applies to everyone, including contractors and members of the board.

2. CONFLICTS OF INTEREST
Employees must disclose any financial interest, outside employment, or personal relationship that could influence their business judgement. Disclosures go to the Legal department.

3. GIFTS AND ENTERTAINMENT
Gifts above $100 in value from vendors or customers must be declined or handed to the company. Cash gifts are never acceptable in any amount.

4. CONFIDENTIALITY
Company and customer information must be protected during and after employment. Confidential material may only be shared on a need-to-know basis.

5. REPORTING VIOLATIONS
Suspected violations must be reported to Legal or through the anonymous ethics hotline. The company prohibits retaliation against anyone who reports a concern in good faith.

6. CONSEQUENCES
Violations of the code may result in disciplinary action up to and including termination and referral to law enforcement.`,
	},
	{
		Title:      "Information Security Policy",
		Category:   CategoryEthics,
		Department: DepartmentIT,
		Content: `INFORMATION SECURITY POLICY

1. ACCESS CONTROL
Access to systems follows least privilege. Access rights are reviewed quarterly and revoked on the employee's last day.

2. AUTHENTICATION
Multi-factor authentication is mandatory for all company accounts. Passwords must be unique per system and stored only in the approved password manager.

3. DEVICE SECURITY
- Company laptops are centrally managed with full-disk encryption.
- Security patches must be applied within 14 days of release.
- Lost or stolen devices must be reported to IT within 24 hours.

4. DATA HANDLING
Customer data is classified as confidential by default. Production data may not be copied to personal devices or unapproved cloud services.

5. INCIDENT RESPONSE
Suspected security incidents must be reported to security@alphas.example immediately. The incident response team triages reports within one hour, around the clock.`,
	},
	{
		Title:      "Travel and Expense Policy",
		Category:   CategoryCompensation,
		Department: DepartmentFinance,
		Content: `TRAVEL AND EXPENSE POLICY

1. BOOKING
All business travel must be booked through the corporate travel tool. Economy class applies to flights under six hours; premium economy is permitted above that.

2. EXPENSE LIMITS
- Hotel: up to $250 per night in standard cities, $350 in high-cost cities.
- Meals: up to $75 per day, receipts required above $25.
- Ground transport: ride-sharing or public transit preferred over rental cars.

3. REIMBURSEMENT
Expense reports are submitted within 30 days of the trip through the finance portal. Approved reports are reimbursed with the next payroll run.

4. CORPORATE CARDS
Employees who travel more than four times per year receive a corporate card. Personal charges on the corporate card must be repaid within 15 days.

5. NON-REIMBURSABLE ITEMS
Alcohol outside client entertainment, in-flight upgrades, traffic fines, and expenses without a business purpose are not reimbursable.`,
	},
}

// preloadedFAQs is the built-in FAQ corpus. Each FAQ becomes a small document
// of source type "faq".
var preloadedFAQs = []FAQ{
	{
		Question:   "How many vacation days do I have?",
		Answer:     "The company has a flexible time off policy with no fixed annual cap. A minimum of three weeks per year is encouraged.",
		Category:   CategoryVacation,
		Department: DepartmentHR,
	},
	{
		Question:   "How does remote work function?",
		Answer:     "The standard model is hybrid: three days in the office and two days remote. Fully remote arrangements require special approval from the department head and HR.",
		Category:   CategoryRemoteWork,
		Department: DepartmentHR,
	},
	{
		Question:   "What health benefits do I have?",
		Answer:     "The company covers 100% of medical insurance premiums for employees, plus dental and vision insurance, wellness programs, and on-campus clinics.",
		Category:   CategoryBenefits,
		Department: DepartmentHR,
	},
	{
		Question:   "How does the 401(k) plan work?",
		Answer:     "The company matches 50% of contributions up to the first 6% of salary, with immediate vesting and more than 20 investment options.",
		Category:   CategoryBenefits,
		Department: DepartmentHR,
	},
	{
		Question:   "What budget do I have for training?",
		Answer:     "Every employee has $3,000 per year for professional development, covering courses, certifications, and conferences.",
		Category:   CategoryDevelopment,
		Department: DepartmentHR,
	},
	{
		Question:   "How do I get travel expenses reimbursed?",
		Answer:     "Submit an expense report through the finance portal within 30 days of the trip. Approved reports are paid with the next payroll run.",
		Category:   CategoryCompensation,
		Department: DepartmentFinance,
	},
}

// Policies returns the preloaded policy corpus.
func Policies() []PolicyDoc { return preloadedPolicies }

// FAQs returns the preloaded FAQ corpus.
func FAQs() []FAQ { return preloadedFAQs }
